package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"proctor/internal/eval"
	"proctor/internal/format"
	"proctor/internal/policy"
	"proctor/internal/store"
	"proctor/internal/validate"
)

func sampleResults() []eval.ItemResult {
	return []eval.ItemResult{
		{
			Item: eval.Item{ID: "q1", Schema: "interview_chat", PromptType: "interview_chat", Endpoint: "/v1/chat"},
			Outcome: policy.Outcome{
				State: policy.StateValidated, Pass: true, LatencyMS: 120.5,
				FallbackAction: policy.ActionNone,
				Verdict:        validate.Verdict{OK: true},
			},
			Quality: eval.Quality{Overall: 90, Completeness: 85, Format: 100, Factuality: 100, Coherence: 80},
		},
		{
			Item: eval.Item{ID: "q2", Schema: "scoring", PromptType: "scoring"},
			Outcome: policy.Outcome{
				State: policy.StateFailed, Retried: true, LatencyMS: 800,
				FallbackAction: policy.ActionFailed,
				Verdict:        validate.Verdict{ErrorKind: validate.KindFormat, Detail: "invalid_json"},
			},
		},
		{
			Item: eval.Item{ID: "q3", Schema: "scoring"},
			Err:  "upstream timeout",
			Outcome: policy.Outcome{
				State: policy.StateFailed, FallbackAction: policy.ActionFailed,
				Verdict: validate.Verdict{ErrorKind: validate.KindInternal, Detail: "upstream: timeout"},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	header := strings.Join(rows[0], ",")
	for _, col := range []string{"validator_run", "validator_pass", "validator_error_type", "validator_retried", "fallback_action"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing %q: %s", col, header)
		}
	}

	byID := map[string][]string{}
	for _, row := range rows[1:] {
		byID[row[0]] = row
	}
	q1 := byID["q1"]
	if q1[4] != "true" || q1[5] != "true" || q1[6] != "" {
		t.Errorf("q1 validator columns = %v", q1[4:7])
	}
	q2 := byID["q2"]
	if q2[4] != "true" || q2[5] != "false" || q2[6] != "format_error" || q2[8] != "true" || q2[9] != "failed" {
		t.Errorf("q2 validator columns = %v", q2[4:10])
	}
	// Upstream failure: the validator never ran, pass and kind are blank.
	q3 := byID["q3"]
	if q3[4] != "false" || q3[5] != "" || q3[6] != "" || q3[16] != "upstream timeout" {
		t.Errorf("q3 columns = %v", q3)
	}
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.md")
	results := sampleResults()
	run := &eval.RunResult{
		RunID:   "run-42",
		Results: results,
		Summary: eval.Summarize(results),
	}
	if err := WriteMarkdown(path, run, "stub"); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"# Validation Run Report",
		"run-42",
		"## Overall Summary",
		"## Quality Metrics",
		"## Results by Schema",
		"## Failures",
		"invalid_json",
		"## Slowest Items",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestPassRateTable(t *testing.T) {
	rates := []store.PassRate{
		{Schema: "interview_chat", Total: 10, CleanPass: 7, Salvaged: 2, Failed: 1},
		{Schema: "scoring", Total: 4, CleanPass: 4},
	}
	out := PassRateTable(rates, format.ASCII)
	for _, want := range []string{"interview_chat", "90.0%", "scoring", "100.0%", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
