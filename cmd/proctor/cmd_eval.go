package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"proctor/adapters/backend"
	"proctor/internal/eval"
	"proctor/internal/report"
	"proctor/internal/store"
)

var evalFlags struct {
	items      string
	configPath string
	backendURL string
	token      string
	schemaDir  string
	fallback   string
	parallel   int
	dbPath     string
	outputDir  string
	stub       bool
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the evaluation harness against a completion backend",
	Long: `Eval loads a prompt corpus, obtains responses from the backend, validates
each through the engine and retry/fallback policy, and writes CSV plus
Markdown reports. Results are persisted for 'proctor report'.`,
	RunE: runEval,
}

func init() {
	f := evalCmd.Flags()
	f.StringVar(&evalFlags.items, "items", "", "Path to JSONL prompt corpus (required)")
	f.StringVar(&evalFlags.configPath, "config", "", "YAML config file (flags override it)")
	f.StringVar(&evalFlags.backendURL, "backend", "", "Completion backend base URL")
	f.StringVar(&evalFlags.token, "token", "", "Bearer token for the backend")
	f.StringVar(&evalFlags.schemaDir, "schemas", "", "Directory of schema JSON files overriding the builtins")
	f.StringVar(&evalFlags.fallback, "fallback", "", "Fallback mode (none, salvage, human_review)")
	f.IntVar(&evalFlags.parallel, "parallel", 0, "Number of parallel workers")
	f.StringVar(&evalFlags.dbPath, "db", store.DefaultDBPath, "Result store DB path")
	f.StringVarP(&evalFlags.outputDir, "output", "o", "", "Report output directory")
	f.BoolVar(&evalFlags.stub, "stub", false, "Use recorded responses from the corpus instead of a live backend")
	_ = evalCmd.MarkFlagRequired("items")
}

func runEval(cmd *cobra.Command, _ []string) error {
	cfg := eval.DefaultConfig()
	if evalFlags.configPath != "" {
		var err error
		if cfg, err = eval.LoadConfig(evalFlags.configPath); err != nil {
			return err
		}
	}
	if evalFlags.backendURL != "" {
		cfg.BackendURL = evalFlags.backendURL
	}
	if evalFlags.token != "" {
		cfg.BackendToken = evalFlags.token
	}
	if evalFlags.fallback != "" {
		cfg.Fallback = evalFlags.fallback
	}
	if evalFlags.parallel > 0 {
		cfg.Parallel = evalFlags.parallel
	}
	if evalFlags.outputDir != "" {
		cfg.OutputDir = evalFlags.outputDir
	}

	items, err := eval.LoadItems(evalFlags.items)
	if err != nil {
		return err
	}

	var be backend.Backend
	if !evalFlags.stub {
		if cfg.BackendURL == "" {
			return fmt.Errorf("--backend (or backend_url in config) is required without --stub")
		}
		be, err = backend.NewHTTP(cfg.BackendURL, cfg.BackendToken,
			backend.WithTimeout(cfg.Timeout()))
		if err != nil {
			return err
		}
	}

	_, eng, err := buildEngine(evalFlags.schemaDir, cfg)
	if err != nil {
		return err
	}
	pol, err := buildPolicy(cfg.Fallback, cfg.ReviewQueue)
	if err != nil {
		return err
	}

	st, err := store.Open(evalFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := eval.NewRunner(cfg, eng, be, pol, st)
	started := time.Now()
	run, err := runner.Run(cmd.Context(), items)
	if err != nil {
		return err
	}

	fmt.Println(summaryTable(run.Summary))
	fmt.Printf("Run %s: %d items in %s\n", run.RunID, run.Summary.Total,
		time.Since(started).Round(time.Millisecond))

	ts := timestamp()
	csvPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("eval_results_%s.csv", ts))
	if err := report.WriteCSVFile(csvPath, run.Results); err != nil {
		return err
	}
	mdPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("eval_report_%s.md", ts))
	backendName := "offline"
	if be != nil {
		backendName = cfg.BackendURL
	}
	if err := report.WriteMarkdown(mdPath, run, backendName); err != nil {
		return err
	}
	fmt.Printf("CSV: %s\nReport: %s\n", csvPath, mdPath)
	return nil
}
