package main

import (
	"strings"
	"testing"

	"proctor/internal/eval"
	"proctor/internal/policy"
)

func TestBuildEngine(t *testing.T) {
	reg, eng, err := buildEngine("", eval.DefaultConfig())
	if err != nil {
		t.Fatalf("buildEngine() error = %v", err)
	}
	if eng == nil || len(reg.Names()) == 0 {
		t.Error("engine or builtin schemas missing")
	}

	if _, _, err := buildEngine("/nonexistent/schemas", eval.DefaultConfig()); err == nil {
		t.Error("buildEngine() with bad schema dir should error")
	}
}

func TestBuildPolicy(t *testing.T) {
	p, err := buildPolicy("salvage", "q.csv")
	if err != nil {
		t.Fatalf("buildPolicy() error = %v", err)
	}
	if p.Mode != policy.FallbackSalvage || p.Queue != nil {
		t.Errorf("salvage policy = %+v", p)
	}

	p, err = buildPolicy("human_review", "q.csv")
	if err != nil {
		t.Fatal(err)
	}
	if p.Queue == nil {
		t.Error("human_review policy needs a queue")
	}

	if _, err := buildPolicy("bogus", ""); err == nil {
		t.Error("buildPolicy(bogus) should error")
	}
}

func TestSummaryTable(t *testing.T) {
	s := eval.Summary{
		Total: 3, CleanPass: 2, Failed: 1,
		AvgLatencyMS: 120, P95LatencyMS: 300,
		BySchema: []eval.SchemaStats{
			{Schema: "scoring", Total: 3, CleanPass: 2, Failed: 1, AvgLatencyMS: 120, P95LatencyMS: 300},
		},
	}
	out := summaryTable(s)
	for _, want := range []string{"scoring", "TOTAL", "120ms", "300ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary table missing %q:\n%s", want, out)
		}
	}
}
