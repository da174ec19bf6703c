package mcp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"proctor/internal/schema"
	"proctor/internal/store"
	"proctor/internal/validate"
)

func testServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	reg, err := schema.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	eng, err := validate.New(reg, validate.Config{})
	if err != nil {
		t.Fatalf("validate.New() error = %v", err)
	}
	return NewServer(eng, reg, st)
}

func TestHandleValidateOutput(t *testing.T) {
	s := testServer(t, nil)

	_, out, err := s.handleValidateOutput(context.Background(), nil, validateOutputInput{
		Schema: "interview_chat",
		Output: "```json\n{\"answer\": \"Use a covering index.\", \"confidence\": 0.7}\n```",
	})
	if err != nil {
		t.Fatalf("handleValidateOutput() error = %v", err)
	}
	if !out.OK || out.ErrorKind != "" {
		t.Errorf("fenced clean output: %+v", out)
	}

	_, out, err = s.handleValidateOutput(context.Background(), nil, validateOutputInput{
		Schema: "interview_chat",
		Output: `{"text": "Use a covering index for that query.", "confidence": 0.7}`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.OK || out.ErrorKind != "salvaged_missing" || len(out.SalvagedFields) == 0 {
		t.Errorf("aliased output: %+v", out)
	}

	_, out, err = s.handleValidateOutput(context.Background(), nil, validateOutputInput{
		Schema: "interview_chat",
		Output: "no json here",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.OK || out.ErrorKind != "format_error" {
		t.Errorf("garbage output: %+v", out)
	}

	if _, _, err := s.handleValidateOutput(context.Background(), nil, validateOutputInput{
		Schema: "interview_chat", Output: "   ",
	}); err == nil {
		t.Error("blank output should error")
	}
}

func TestHandleListSchemas(t *testing.T) {
	s := testServer(t, nil)
	_, out, err := s.handleListSchemas(context.Background(), nil, listSchemasInput{})
	if err != nil {
		t.Fatalf("handleListSchemas() error = %v", err)
	}
	want := []string{"interview_chat", "interview_turn", "scoring"}
	if diff := cmp.Diff(want, out.Schemas); diff != "" {
		t.Errorf("schemas mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlePassRates(t *testing.T) {
	st := store.NewMemStore()
	if err := st.CreateRun(&store.Run{ID: "run-1"}); err != nil {
		t.Fatal(err)
	}
	seed := []store.Result{
		{RunID: "run-1", ItemID: "a", Schema: "scoring", Pass: true},
		{RunID: "run-1", ItemID: "b", Schema: "scoring", Pass: true, Salvaged: true},
		{RunID: "run-1", ItemID: "c", Schema: "scoring"},
	}
	for i := range seed {
		r := seed[i]
		if _, err := st.SaveResult(&r); err != nil {
			t.Fatal(err)
		}
	}

	s := testServer(t, st)
	_, out, err := s.handlePassRates(context.Background(), nil, passRatesInput{RunID: "run-1"})
	if err != nil {
		t.Fatalf("handlePassRates() error = %v", err)
	}
	want := []passRateRow{{Schema: "scoring", Total: 3, CleanPass: 1, Salvaged: 1, Failed: 1}}
	if diff := cmp.Diff(want, out.Rates); diff != "" {
		t.Errorf("rates mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlePassRates_NoStore(t *testing.T) {
	s := testServer(t, nil)
	if _, _, err := s.handlePassRates(context.Background(), nil, passRatesInput{}); err == nil {
		t.Error("pass_rates without a store should error")
	}
}
