package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proctor/internal/eval"
	"proctor/internal/report"
)

var validateFlags struct {
	items       string
	schemaDir   string
	fallback    string
	reviewQueue string
	output      string
	markdown    string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate pre-recorded responses from a JSONL corpus",
	Long: `Validate runs the engine over recorded responses (the "response" field
of each JSONL item) without calling any backend. Retry is unavailable
offline; failures go straight to the configured fallback.`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.items, "items", "", "Path to JSONL items with recorded responses (required)")
	f.StringVar(&validateFlags.schemaDir, "schemas", "", "Directory of schema JSON files overriding the builtins")
	f.StringVar(&validateFlags.fallback, "fallback", "salvage", "Fallback mode (none, salvage, human_review)")
	f.StringVar(&validateFlags.reviewQueue, "review-queue", "review_queue.csv", "Human-review queue CSV path")
	f.StringVarP(&validateFlags.output, "out", "o", "", "Results CSV path (empty = skip)")
	f.StringVar(&validateFlags.markdown, "report", "", "Markdown report path (empty = skip)")
	_ = validateCmd.MarkFlagRequired("items")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	items, err := eval.LoadItems(validateFlags.items)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Response == "" {
			return fmt.Errorf("item %s has no recorded response; use 'proctor eval' for live runs", it.ID)
		}
	}

	cfg := eval.DefaultConfig()
	cfg.Fallback = validateFlags.fallback
	_, eng, err := buildEngine(validateFlags.schemaDir, cfg)
	if err != nil {
		return err
	}
	pol, err := buildPolicy(cfg.Fallback, validateFlags.reviewQueue)
	if err != nil {
		return err
	}

	runner := eval.NewRunner(cfg, eng, nil, pol, nil)
	run, err := runner.Run(cmd.Context(), items)
	if err != nil {
		return err
	}

	fmt.Println(summaryTable(run.Summary))

	if validateFlags.output != "" {
		if err := report.WriteCSVFile(validateFlags.output, run.Results); err != nil {
			return err
		}
		fmt.Printf("CSV written: %s\n", validateFlags.output)
	}
	if validateFlags.markdown != "" {
		if err := report.WriteMarkdown(validateFlags.markdown, run, "offline"); err != nil {
			return err
		}
		fmt.Printf("Report written: %s\n", validateFlags.markdown)
	}
	if run.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed validation", run.Summary.Failed, run.Summary.Total)
	}
	return nil
}
