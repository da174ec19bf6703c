package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"proctor/adapters/backend"
	"proctor/internal/logging"
	"proctor/internal/policy"
	"proctor/internal/store"
	"proctor/internal/validate"
)

// ItemResult is the per-item outcome of a run.
type ItemResult struct {
	Item    Item
	Outcome policy.Outcome
	Quality Quality
	Err     string // upstream transport error on the first attempt
}

// RunResult bundles the run ID, per-item results, and aggregate summary.
type RunResult struct {
	RunID   string
	Results []ItemResult
	Summary Summary
}

// Runner drives the validate-and-resolve pipeline over a corpus with
// bounded parallelism.
type Runner struct {
	cfg     Config
	engine  *validate.Engine
	backend backend.Backend
	pol     *policy.Policy
	st      store.Store
	log     *slog.Logger
}

// NewRunner wires a runner. st may be nil to skip persistence.
func NewRunner(cfg Config, eng *validate.Engine, be backend.Backend, pol *policy.Policy, st store.Store) *Runner {
	return &Runner{
		cfg:     cfg,
		engine:  eng,
		backend: be,
		pol:     pol,
		st:      st,
		log:     logging.New("eval"),
	}
}

// Run evaluates all items and returns results in input order.
func (r *Runner) Run(ctx context.Context, items []Item) (*RunResult, error) {
	runID := uuid.NewString()
	started := time.Now()
	if r.st != nil {
		if err := r.st.CreateRun(&store.Run{
			ID:       runID,
			Backend:  r.backendName(),
			Fallback: string(r.pol.Mode),
		}); err != nil {
			return nil, err
		}
	}
	r.log.Info("run started", "run_id", runID, "items", len(items), "parallel", r.cfg.Parallel)

	results := make([]ItemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			results[i] = r.evalOne(gctx, it)
			return nil
		})
	}
	_ = g.Wait() // per-item errors are captured in ItemResult.Err

	if r.st != nil {
		for _, res := range results {
			if _, err := r.st.SaveResult(resultRow(runID, res)); err != nil {
				r.log.Error("save result", "item", res.Item.ID, "error", err)
			}
		}
		if err := r.st.FinishRun(runID, "", len(results)); err != nil {
			r.log.Error("finish run", "run_id", runID, "error", err)
		}
	}

	summary := Summarize(results)
	r.log.Info("run finished", "run_id", runID,
		"clean", summary.CleanPass, "salvaged", summary.SalvagedPass, "failed", summary.Failed,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return &RunResult{RunID: runID, Results: results, Summary: summary}, nil
}

func (r *Runner) backendName() string {
	if r.backend == nil {
		return "offline"
	}
	return r.backend.Name()
}

func (r *Runner) evalOne(ctx context.Context, it Item) ItemResult {
	first, err := r.firstAttempt(ctx, it)
	if err != nil {
		r.log.Error("first attempt failed", "item", it.ID, "error", err)
		return ItemResult{
			Item: it,
			Err:  err.Error(),
			Outcome: policy.Outcome{
				State:          policy.StateFailed,
				FallbackAction: policy.ActionFailed,
				Verdict: validate.Verdict{
					ErrorKind: validate.KindInternal,
					Detail:    "upstream: " + err.Error(),
				},
			},
		}
	}

	var retry policy.RetryFunc
	if it.Response == "" && r.backend != nil {
		retry = func(ctx context.Context) (policy.Attempt, error) {
			resp, err := r.complete(ctx, it, true)
			if err != nil {
				return policy.Attempt{}, err
			}
			return r.attempt(it, resp), nil
		}
	}

	out := r.pol.Resolve(ctx, policy.Item{
		ID:         it.ID,
		Schema:     it.Schema,
		PromptType: it.PromptType,
		Endpoint:   it.Endpoint,
	}, first, retry)

	res := ItemResult{Item: it, Outcome: out}
	if out.Pass {
		res.Quality = ScoreResponse(out.Response)
	}
	return res
}

// firstAttempt obtains and validates the initial response: the recorded
// text for offline items, a live completion otherwise.
func (r *Runner) firstAttempt(ctx context.Context, it Item) (policy.Attempt, error) {
	if it.Response != "" {
		return r.attempt(it, backend.Response{Text: it.Response}), nil
	}
	if r.backend == nil {
		return policy.Attempt{}, fmt.Errorf("item %s: no recorded response and no backend configured", it.ID)
	}
	resp, err := r.complete(ctx, it, false)
	if err != nil {
		return policy.Attempt{}, err
	}
	return r.attempt(it, resp), nil
}

func (r *Runner) complete(ctx context.Context, it Item, isRetry bool) (backend.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout())
	defer cancel()
	return r.backend.Complete(callCtx, backend.Request{
		ID:         it.ID,
		PromptType: it.PromptType,
		Prompt:     it.Prompt,
		Retry:      isRetry,
	})
}

// attempt validates raw response text. Prose-wrapped JSON is extracted
// before validation.
func (r *Runner) attempt(it Item, resp backend.Response) policy.Attempt {
	candidate := resp.Text
	if extracted, ok := validate.ExtractEmbedded(resp.Text); ok {
		candidate = extracted
	}
	v := r.engine.Validate(validate.Context{
		Schema:     it.Schema,
		RequestID:  it.ID,
		PromptType: it.PromptType,
	}, candidate)
	return policy.Attempt{Response: resp.Text, LatencyMS: resp.LatencyMS, Verdict: v}
}

func resultRow(runID string, res ItemResult) *store.Result {
	out := res.Outcome
	detail := out.Verdict.Detail
	if res.Err != "" && detail == "" {
		detail = res.Err
	}
	return &store.Result{
		RunID:          runID,
		ItemID:         res.Item.ID,
		Schema:         res.Item.Schema,
		PromptType:     res.Item.PromptType,
		Endpoint:       res.Item.Endpoint,
		Pass:           out.Pass,
		Salvaged:       out.State == policy.StateSalvaged,
		ErrorKind:      string(out.Verdict.ErrorKind),
		Detail:         detail,
		SalvagedFields: strings.Join(out.Verdict.SalvagedFields, " "),
		Retried:        out.Retried,
		FallbackAction: string(out.FallbackAction),
		LatencyMS:      out.LatencyMS,
	}
}
