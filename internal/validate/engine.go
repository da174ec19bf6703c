package validate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"proctor/internal/logging"
	"proctor/internal/schema"
)

// DefaultStripKeys are the transport metadata fields the calling layer
// injects into responses. They are removed before property checks so they
// never count as extras. Override via Config.StripKeys when the caller's
// injection surface changes.
var DefaultStripKeys = []string{
	"question", "questionNumber", "question_number", "sessionId", "session_id",
}

// Config is the engine's one explicit knob set, passed at construction.
type Config struct {
	// ScoreDefault replaces an unrecoverable score on the scoring schema.
	// Zero means "use the rule-file default" (85.0).
	ScoreDefault float64
	// ScoringSchema names the schema that gets the score fallback escape
	// hatch. Empty means "scoring".
	ScoringSchema string
	// StripKeys overrides DefaultStripKeys when non-nil.
	StripKeys []string
}

func (c Config) scoringSchema(name string) bool {
	want := c.ScoringSchema
	if want == "" {
		want = "scoring"
	}
	return name == want
}

func (c Config) stripKeys() []string {
	if c.StripKeys != nil {
		return c.StripKeys
	}
	return DefaultStripKeys
}

// Engine validates candidates against registered schemas with bounded
// heuristic repair. One engine serves all schemas; construct it once and
// share it across workers.
type Engine struct {
	reg   *schema.Registry
	cfg   Config
	rules *salvageRules
	log   *slog.Logger
}

// New builds an engine over a populated registry.
func New(reg *schema.Registry, cfg Config) (*Engine, error) {
	rules, err := loadSalvageRules()
	if err != nil {
		return nil, err
	}
	return &Engine{reg: reg, cfg: cfg, rules: rules, log: logging.New("validate")}, nil
}

// Validate runs the full pipeline on one candidate: parse/normalize,
// additional-properties check, required-field salvage, type/range rules,
// semantic rules, and verdict classification.
//
// An unknown schema name is a permissive pass-through (detail no_schema):
// validation is skipped, not failed, when no schema is configured. Panics
// inside the engine surface as ErrorKind internal.
func (e *Engine) Validate(vc Context, candidate any) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine panic", "schema", vc.Schema, "request_id", vc.RequestID, "panic", r)
			verdict = fail(KindInternal, fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	sc, ok := e.reg.Lookup(vc.Schema)
	if !ok {
		return Verdict{OK: true, Detail: "no_schema"}
	}

	obj, err := normalize(candidate, e.cfg.stripKeys())
	if err != nil {
		detail := "invalid_json"
		if errors.Is(err, errNotObject) {
			detail = "not_an_object"
		}
		return fail(KindFormat, detail, nil)
	}

	s := newSalvager(obj, sc, e.rules, e.cfg)
	if hard := s.check(); hard != nil {
		e.log.Debug("hard validation failure",
			"schema", vc.Schema, "request_id", vc.RequestID,
			"kind", hard.kind, "detail", hard.detail)
		return fail(hard.kind, hard.detail, s.touched)
	}

	if len(s.touched) > 0 {
		e.log.Debug("salvaged pass",
			"schema", vc.Schema, "request_id", vc.RequestID, "fields", s.touched)
		return pass(s.touched, salvageDetail(s.touched))
	}
	return pass(nil, "")
}

// salvageDetail renders the sorted touched-field list for the verdict
// detail, e.g. "salvaged:[answer confidence]".
func salvageDetail(fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return "salvaged:[" + strings.Join(sorted, " ") + "]"
}
