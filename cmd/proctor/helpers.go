package main

import (
	"fmt"
	"time"

	"proctor/internal/eval"
	"proctor/internal/format"
	"proctor/internal/policy"
	"proctor/internal/schema"
	"proctor/internal/validate"
)

// buildEngine assembles the schema registry (builtins plus an optional
// override dir) and the validation engine.
func buildEngine(schemaDir string, cfg eval.Config) (*schema.Registry, *validate.Engine, error) {
	reg, err := schema.NewRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("load builtin schemas: %w", err)
	}
	if schemaDir != "" {
		if err := reg.LoadDir(schemaDir); err != nil {
			return nil, nil, fmt.Errorf("load schema dir %s: %w", schemaDir, err)
		}
	}
	eng, err := validate.New(reg, validate.Config{
		ScoreDefault: cfg.ScoreDefault,
		StripKeys:    cfg.StripKeys,
	})
	if err != nil {
		return nil, nil, err
	}
	return reg, eng, nil
}

// buildPolicy parses the fallback mode and wires the review queue when
// the mode requires one.
func buildPolicy(mode, queuePath string) (*policy.Policy, error) {
	fm, ok := policy.ParseFallbackMode(mode)
	if !ok {
		return nil, fmt.Errorf("unknown fallback mode %q (none, salvage, human_review)", mode)
	}
	var queue *policy.ReviewQueue
	if fm == policy.FallbackHumanReview {
		queue = policy.OpenReviewQueue(queuePath)
	}
	return policy.New(fm, queue), nil
}

// summaryTable renders the run summary for the terminal.
func summaryTable(s eval.Summary) string {
	tb := format.NewTable(format.ASCII)
	tb.Header("SCHEMA", "ITEMS", "CLEAN", "SALVAGED", "FAILED", "AVG LAT", "P95 LAT")
	for _, st := range s.BySchema {
		tb.Row(st.Schema, st.Total, st.CleanPass, st.SalvagedPass, st.Failed,
			format.FmtLatency(st.AvgLatencyMS), format.FmtLatency(st.P95LatencyMS))
	}
	tb.Footer("TOTAL", s.Total, s.CleanPass, s.SalvagedPass, s.Failed,
		format.FmtLatency(s.AvgLatencyMS), format.FmtLatency(s.P95LatencyMS))
	return tb.String()
}

func timestamp() string {
	return time.Now().Format("20060102_150405")
}
