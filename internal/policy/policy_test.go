package policy

import (
	"context"
	"errors"
	"testing"

	"proctor/internal/validate"
)

func cleanVerdict() validate.Verdict {
	return validate.Verdict{OK: true}
}

func salvagedVerdict(fields ...string) validate.Verdict {
	return validate.Verdict{
		OK:             true,
		ErrorKind:      validate.KindSalvaged,
		Detail:         "salvaged:[answer]",
		SalvagedFields: fields,
	}
}

func failedVerdict(kind validate.ErrorKind, detail string) validate.Verdict {
	return validate.Verdict{OK: false, ErrorKind: kind, Detail: detail}
}

func noRetry(t *testing.T) RetryFunc {
	return func(ctx context.Context) (Attempt, error) {
		t.Fatal("retry invoked unexpectedly")
		return Attempt{}, nil
	}
}

func TestResolve_CleanPass(t *testing.T) {
	p := New(FallbackNone, nil)
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Response: `{"ok":1}`, LatencyMS: 12, Verdict: cleanVerdict()}, noRetry(t))

	if out.State != StateValidated || !out.Pass || out.Retried {
		t.Errorf("got state=%s pass=%v retried=%v, want VALIDATED pass", out.State, out.Pass, out.Retried)
	}
	if out.FallbackAction != ActionNone {
		t.Errorf("FallbackAction = %q, want none", out.FallbackAction)
	}
}

func TestResolve_SalvagedPass(t *testing.T) {
	p := New(FallbackSalvage, nil)
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Verdict: salvagedVerdict("answer")}, noRetry(t))

	if out.State != StateSalvaged || !out.Pass {
		t.Errorf("got state=%s pass=%v, want SALVAGED pass", out.State, out.Pass)
	}
}

func TestResolve_SalvagedPassDemotedWithoutFallback(t *testing.T) {
	p := New(FallbackNone, nil)
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Verdict: salvagedVerdict("answer")}, noRetry(t))

	if out.State != StateFailed || out.Pass {
		t.Errorf("got state=%s pass=%v, want FAILED without pass", out.State, out.Pass)
	}
	if out.FallbackAction != ActionFailed {
		t.Errorf("FallbackAction = %q, want failed", out.FallbackAction)
	}
}

func TestResolve_RetrySecondVerdictWins(t *testing.T) {
	p := New(FallbackNone, nil)
	retried := 0
	retry := func(ctx context.Context) (Attempt, error) {
		retried++
		return Attempt{Response: `{"fixed":true}`, LatencyMS: 30, Verdict: cleanVerdict()}, nil
	}
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Response: "garbage", LatencyMS: 20,
			Verdict: failedVerdict(validate.KindFormat, "invalid_json")}, retry)

	if retried != 1 {
		t.Fatalf("retry invoked %d times, want 1", retried)
	}
	if out.State != StateValidated || !out.Pass || !out.Retried {
		t.Errorf("got state=%s pass=%v retried=%v, want VALIDATED pass retried", out.State, out.Pass, out.Retried)
	}
	if out.Response != `{"fixed":true}` {
		t.Errorf("Response = %q, want second attempt", out.Response)
	}
	if out.LatencyMS != 50 {
		t.Errorf("LatencyMS = %v, want 50", out.LatencyMS)
	}
}

func TestResolve_FailedRetryKeepsOriginalVerdict(t *testing.T) {
	p := New(FallbackNone, nil)
	retry := func(ctx context.Context) (Attempt, error) {
		return Attempt{LatencyMS: 5,
			Verdict: failedVerdict(validate.KindSchema, "missing:[score]")}, nil
	}
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Response: "garbage", LatencyMS: 20,
			Verdict: failedVerdict(validate.KindFormat, "invalid_json")}, retry)

	if out.State != StateFailed || out.Pass {
		t.Errorf("got state=%s pass=%v, want FAILED", out.State, out.Pass)
	}
	if out.Verdict.ErrorKind != validate.KindFormat || out.Verdict.Detail != "invalid_json" {
		t.Errorf("verdict = %+v, want original first-attempt classification", out.Verdict)
	}
	if out.LatencyMS != 25 {
		t.Errorf("LatencyMS = %v, want 25", out.LatencyMS)
	}
}

func TestResolve_RetryTransportErrorFallsThrough(t *testing.T) {
	p := New(FallbackNone, nil)
	retry := func(ctx context.Context) (Attempt, error) {
		return Attempt{}, errors.New("upstream timeout")
	}
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Verdict: failedVerdict(validate.KindFormat, "invalid_json")}, retry)

	if out.State != StateFailed || !out.Retried {
		t.Errorf("got state=%s retried=%v, want FAILED after attempted retry", out.State, out.Retried)
	}
	if out.Verdict.ErrorKind != validate.KindFormat {
		t.Errorf("verdict kind = %q, want original format_error", out.Verdict.ErrorKind)
	}
}

func TestResolve_PartialSalvageSkipsRetry(t *testing.T) {
	p := New(FallbackNone, nil)
	v := failedVerdict(validate.KindSemantic, "answer_too_short")
	v.SalvagedFields = []string{"confidence"}
	out := p.Resolve(context.Background(), Item{ID: "a"}, Attempt{Verdict: v}, noRetry(t))

	if out.Retried {
		t.Error("partial-salvage failure should not retry")
	}
	if out.State != StateFailed {
		t.Errorf("state = %s, want FAILED", out.State)
	}
}

func TestResolve_SalvageModeForcesPassOnEvidence(t *testing.T) {
	p := New(FallbackSalvage, nil)
	v := failedVerdict(validate.KindSemantic, "answer_too_short")
	v.SalvagedFields = []string{"confidence"}
	out := p.Resolve(context.Background(), Item{ID: "a"}, Attempt{Verdict: v}, noRetry(t))

	if out.State != StateSalvaged || !out.Pass {
		t.Errorf("got state=%s pass=%v, want SALVAGED pass", out.State, out.Pass)
	}
	if out.FallbackAction != ActionSalvaged {
		t.Errorf("FallbackAction = %q, want salvaged", out.FallbackAction)
	}
}

func TestResolve_SalvageModeNoEvidenceFails(t *testing.T) {
	p := New(FallbackSalvage, nil)
	retry := func(ctx context.Context) (Attempt, error) {
		return Attempt{Verdict: failedVerdict(validate.KindFormat, "invalid_json")}, nil
	}
	out := p.Resolve(context.Background(), Item{ID: "a"},
		Attempt{Verdict: failedVerdict(validate.KindFormat, "invalid_json")}, retry)

	if out.State != StateFailed || out.Pass {
		t.Errorf("got state=%s pass=%v, want FAILED", out.State, out.Pass)
	}
}

func TestResolve_HumanReviewQueuesRecord(t *testing.T) {
	q := OpenReviewQueue(t.TempDir() + "/review.csv")
	p := New(FallbackHumanReview, q)
	out := p.Resolve(context.Background(),
		Item{ID: "item-7", PromptType: "scoring", Endpoint: "/v1/score"},
		Attempt{Response: "not json at all",
			Verdict: failedVerdict(validate.KindFormat, "invalid_json")}, nil)

	if out.State != StateHumanReview || out.FallbackAction != ActionHumanReview {
		t.Fatalf("got state=%s action=%s, want HUMAN_REVIEW", out.State, out.FallbackAction)
	}
	recs, err := q.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("queue has %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.ID != "item-7" || rec.PromptType != "scoring" || rec.Endpoint != "/v1/score" {
		t.Errorf("record identity = %+v", rec)
	}
	if rec.ErrorType != "format_error" || rec.ErrorInfo != "invalid_json" {
		t.Errorf("record error columns = %q %q", rec.ErrorType, rec.ErrorInfo)
	}
	if rec.OriginalResponse != "not json at all" {
		t.Errorf("record response = %q", rec.OriginalResponse)
	}
	if rec.Timestamp.IsZero() {
		t.Error("record timestamp not set")
	}
}

func TestParseFallbackMode(t *testing.T) {
	for _, s := range []string{"none", "salvage", "human_review"} {
		if _, ok := ParseFallbackMode(s); !ok {
			t.Errorf("ParseFallbackMode(%q) not accepted", s)
		}
	}
	if _, ok := ParseFallbackMode("retry_forever"); ok {
		t.Error("ParseFallbackMode accepted unknown mode")
	}
}
