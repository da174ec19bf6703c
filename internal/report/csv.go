// Package report writes evaluation results as CSV and Markdown.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"proctor/internal/eval"
	"proctor/internal/format"
	"proctor/internal/policy"
)

var csvHeader = []string{
	"id", "schema", "prompt_type", "endpoint",
	"validator_run", "validator_pass", "validator_error_type", "validator_error_info",
	"validator_retried", "fallback_action",
	"latency_ms", "quality_score", "completeness_score", "format_score",
	"factuality_score", "coherence_score", "error",
}

// WriteCSV writes one row per item result.
func WriteCSV(w io.Writer, results []eval.ItemResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, res := range results {
		if err := cw.Write(csvRow(res)); err != nil {
			return fmt.Errorf("write csv row %s: %w", res.Item.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV to path, creating parent dirs.
func WriteCSVFile(path string, results []eval.ItemResult) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(f, results)
}

func csvRow(res eval.ItemResult) []string {
	out := res.Outcome
	// validator_run is false only when the upstream call itself failed
	// before any verdict was produced.
	ran := res.Err == ""
	pass := ""
	errType := ""
	if ran {
		pass = strconv.FormatBool(out.Pass)
		errType = string(out.Verdict.ErrorKind)
	}
	return []string{
		res.Item.ID,
		res.Item.Schema,
		res.Item.PromptType,
		res.Item.Endpoint,
		strconv.FormatBool(ran),
		pass,
		errType,
		out.Verdict.Detail,
		strconv.FormatBool(out.Retried),
		string(out.FallbackAction),
		fmt.Sprintf("%.2f", out.LatencyMS),
		strconv.Itoa(res.Quality.Overall),
		strconv.Itoa(res.Quality.Completeness),
		strconv.Itoa(res.Quality.Format),
		strconv.Itoa(res.Quality.Factuality),
		strconv.Itoa(res.Quality.Coherence),
		format.Truncate(res.Err, 200),
	}
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// ActionLabel renders a fallback action for tables.
func ActionLabel(a policy.FallbackAction) string {
	if a == "" {
		return string(policy.ActionNone)
	}
	return string(a)
}
