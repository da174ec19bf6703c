package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"proctor/internal/eval"
	"proctor/internal/format"
	"proctor/internal/store"
)

// WriteMarkdown renders the human-readable run report: overall summary,
// quality rubric averages, per-schema breakdown, failures, and the
// slowest items.
func WriteMarkdown(path string, run *eval.RunResult, backendName string) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	var b strings.Builder
	s := run.Summary

	b.WriteString("# Validation Run Report\n\n")
	fmt.Fprintf(&b, "**Run**: %s\n\n", run.RunID)
	fmt.Fprintf(&b, "**Generated**: %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Backend**: %s\n\n", backendName)

	b.WriteString("## Overall Summary\n\n")
	fmt.Fprintf(&b, "- **Total Items**: %d\n", s.Total)
	fmt.Fprintf(&b, "- **Clean Pass**: %d (%s)\n", s.CleanPass, format.FmtPct(s.CleanPass, s.Total))
	fmt.Fprintf(&b, "- **Salvaged Pass**: %d (%s)\n", s.SalvagedPass, format.FmtPct(s.SalvagedPass, s.Total))
	fmt.Fprintf(&b, "- **Failed**: %d\n", s.Failed)
	fmt.Fprintf(&b, "- **Retried**: %d\n", s.Retried)
	fmt.Fprintf(&b, "- **Average Latency**: %.2fms\n", s.AvgLatencyMS)
	fmt.Fprintf(&b, "- **Median Latency (p50)**: %.2fms\n", s.P50LatencyMS)
	fmt.Fprintf(&b, "- **95th Percentile (p95)**: %.2fms\n\n", s.P95LatencyMS)

	if s.AvgQuality > 0 {
		b.WriteString("## Quality Metrics (Rubric-Based)\n\n")
		fmt.Fprintf(&b, "- **Overall Quality**: %.1f/100\n", s.AvgQuality)
		fmt.Fprintf(&b, "- **Completeness**: %.1f/100\n", s.AvgCompleteness)
		fmt.Fprintf(&b, "- **Format Compliance**: %.1f/100\n", s.AvgFormat)
		fmt.Fprintf(&b, "- **Factuality**: %.1f/100\n", s.AvgFactuality)
		fmt.Fprintf(&b, "- **Coherence**: %.1f/100\n\n", s.AvgCoherence)
	}

	if len(s.BySchema) > 0 {
		b.WriteString("## Results by Schema\n\n")
		tb := format.NewTable(format.Markdown)
		tb.Header("SCHEMA", "ITEMS", "CLEAN", "SALVAGED", "FAILED", "AVG LAT", "P95 LAT")
		for _, st := range s.BySchema {
			tb.Row(st.Schema, st.Total, st.CleanPass, st.SalvagedPass, st.Failed,
				format.FmtLatency(st.AvgLatencyMS), format.FmtLatency(st.P95LatencyMS))
		}
		b.WriteString(tb.String())
		b.WriteString("\n\n")
	}

	if s.Failed > 0 {
		b.WriteString("## Failures\n\n")
		tb := format.NewTable(format.Markdown)
		tb.Header("ID", "SCHEMA", "KIND", "DETAIL", "ACTION")
		for _, res := range run.Results {
			if res.Outcome.Pass {
				continue
			}
			detail := res.Outcome.Verdict.Detail
			if detail == "" {
				detail = res.Err
			}
			tb.Row(res.Item.ID, res.Item.Schema,
				string(res.Outcome.Verdict.ErrorKind),
				format.Truncate(detail, 60),
				ActionLabel(res.Outcome.FallbackAction))
		}
		b.WriteString(tb.String())
		b.WriteString("\n\n")
	}

	b.WriteString("## Slowest Items (Top 5)\n\n")
	slowest := append([]eval.ItemResult(nil), run.Results...)
	sort.SliceStable(slowest, func(i, j int) bool {
		return slowest[i].Outcome.LatencyMS > slowest[j].Outcome.LatencyMS
	})
	if len(slowest) > 5 {
		slowest = slowest[:5]
	}
	tb := format.NewTable(format.Markdown)
	tb.Header("ID", "SCHEMA", "LATENCY", "RETRIED")
	for _, res := range slowest {
		tb.Row(res.Item.ID, res.Item.Schema,
			format.FmtLatency(res.Outcome.LatencyMS), format.BoolMark(res.Outcome.Retried))
	}
	b.WriteString(tb.String())
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// PassRateTable renders stored per-schema pass rates for the CLI.
func PassRateTable(rates []store.PassRate, mode format.Mode) string {
	tb := format.NewTable(mode)
	tb.Header("SCHEMA", "ITEMS", "CLEAN", "SALVAGED", "FAILED", "PASS RATE")
	var total, clean, salvaged, failed int
	for _, r := range rates {
		tb.Row(r.Schema, r.Total, r.CleanPass, r.Salvaged, r.Failed,
			format.FmtPct(r.CleanPass+r.Salvaged, r.Total))
		total += r.Total
		clean += r.CleanPass
		salvaged += r.Salvaged
		failed += r.Failed
	}
	tb.Footer("TOTAL", total, clean, salvaged, failed, format.FmtPct(clean+salvaged, total))
	return tb.String()
}
