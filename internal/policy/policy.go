// Package policy implements the caller-facing retry/fallback state machine
// that sits on top of the validation engine: at most one retry per item,
// then an operator-configured fallback (accept salvage, queue for human
// review, or fail).
package policy

import (
	"context"
	"log/slog"
	"strings"

	"proctor/internal/logging"
	"proctor/internal/validate"
)

// FallbackMode is the operator-configured policy applied after a failed
// (and possibly retried) validation.
type FallbackMode string

const (
	FallbackNone        FallbackMode = "none"
	FallbackSalvage     FallbackMode = "salvage"
	FallbackHumanReview FallbackMode = "human_review"
)

// ParseFallbackMode validates a CLI/config mode string.
func ParseFallbackMode(s string) (FallbackMode, bool) {
	switch FallbackMode(s) {
	case FallbackNone, FallbackSalvage, FallbackHumanReview:
		return FallbackMode(s), true
	}
	return "", false
}

// State is the policy state machine position for one item.
type State string

const (
	StateValidated    State = "VALIDATED"
	StateSalvaged     State = "SALVAGED"
	StateRetryPending State = "RETRY_PENDING"
	StateRetried      State = "RETRIED"
	StateHumanReview  State = "HUMAN_REVIEW"
	StateFailed       State = "FAILED"
)

// FallbackAction is the reporting-row value describing what the policy did.
type FallbackAction string

const (
	ActionNone        FallbackAction = "none"
	ActionSalvaged    FallbackAction = "salvaged"
	ActionHumanReview FallbackAction = "human_review"
	ActionFailed      FallbackAction = "failed"
)

// Item identifies one response under policy, for queue records and logs.
type Item struct {
	ID         string
	Schema     string
	PromptType string
	Endpoint   string
}

// Attempt is one upstream call's outcome: the raw response text, its
// latency, and the engine's verdict on it.
type Attempt struct {
	Response  string
	LatencyMS float64
	Verdict   validate.Verdict
}

// RetryFunc re-invokes the originating upstream request once, with a
// deterministic (lowered-temperature) hint, and returns the validated
// second attempt. A transport timeout or error counts as a failed retry.
type RetryFunc func(ctx context.Context) (Attempt, error)

// Outcome is the policy's terminal result for one item.
type Outcome struct {
	State          State
	Verdict        validate.Verdict
	Response       string // final accepted response text
	Retried        bool
	LatencyMS      float64 // sum over all attempts
	Pass           bool    // validator_pass after policy
	FallbackAction FallbackAction
}

// Policy applies the retry/fallback rules. One Policy serves many items
// concurrently; the queue serializes its own writes.
type Policy struct {
	Mode  FallbackMode
	Queue *ReviewQueue // required for FallbackHumanReview
	log   *slog.Logger
}

// New returns a policy in the given mode. queue may be nil unless the mode
// is human_review.
func New(mode FallbackMode, queue *ReviewQueue) *Policy {
	return &Policy{Mode: mode, Queue: queue, log: logging.New("policy")}
}

// Resolve runs the state machine for one item. The first attempt has
// already been validated; retry is invoked at most once, and only for a
// hard failure with no salvage evidence. When the retry also fails, the
// first attempt's classification is what the fallback (and reporting)
// sees — a failed retry never overwrites error detail.
func (p *Policy) Resolve(ctx context.Context, item Item, first Attempt, retry RetryFunc) Outcome {
	out := Outcome{
		Verdict:   first.Verdict,
		Response:  first.Response,
		LatencyMS: first.LatencyMS,
	}

	if !first.Verdict.OK && len(first.Verdict.SalvagedFields) == 0 && retry != nil {
		out.Retried = true
		p.log.Debug("retrying item", "id", item.ID, "schema", item.Schema,
			"kind", first.Verdict.ErrorKind)
		second, err := retry(ctx)
		out.LatencyMS += second.LatencyMS
		if err != nil {
			p.log.Warn("retry failed upstream", "id", item.ID, "error", err)
		} else if second.Verdict.OK {
			// The second verdict wins outright.
			out.Verdict = second.Verdict
			out.Response = second.Response
		}
	}

	return p.finish(item, out)
}

func (p *Policy) finish(item Item, out Outcome) Outcome {
	v := out.Verdict

	if v.OK {
		if v.Salvaged() {
			if p.Mode == FallbackNone {
				// Heuristic repair does not count as passing in this mode.
				out.State = StateFailed
				out.FallbackAction = ActionFailed
				return out
			}
			out.State = StateSalvaged
			out.Pass = true
			out.FallbackAction = ActionNone
			return out
		}
		out.State = StateValidated
		out.Pass = true
		out.FallbackAction = ActionNone
		return out
	}

	switch p.Mode {
	case FallbackSalvage:
		if salvageEvidence(v) {
			out.State = StateSalvaged
			out.Pass = true
			out.FallbackAction = ActionSalvaged
			return out
		}
	case FallbackHumanReview:
		if p.Queue != nil {
			if err := p.Queue.Append(ReviewRecord{
				ID:               item.ID,
				PromptType:       item.PromptType,
				Endpoint:         item.Endpoint,
				ErrorType:        string(v.ErrorKind),
				ErrorInfo:        v.Detail,
				OriginalResponse: out.Response,
			}); err != nil {
				p.log.Error("review queue append failed", "id", item.ID, "error", err)
			}
		}
		out.State = StateHumanReview
		out.FallbackAction = ActionHumanReview
		return out
	}

	out.State = StateFailed
	out.FallbackAction = ActionFailed
	return out
}

// salvageEvidence reports whether a failed verdict still shows salvage
// traces: partially recovered fields or a salvage-marked detail string.
func salvageEvidence(v validate.Verdict) bool {
	if len(v.SalvagedFields) > 0 {
		return true
	}
	return v.ErrorKind == validate.KindSalvaged || strings.Contains(v.Detail, "salvaged")
}
