package validate

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"proctor/internal/schema"
)

//go:embed salvage_rules.yaml
var salvageRulesYAML []byte

// salvageRules is the deserialized rule file driving the strategy table.
type salvageRules struct {
	Placeholder string `yaml:"placeholder"`
	Answer      struct {
		Aliases    []string `yaml:"aliases"`
		ChoiceKeys []string `yaml:"choice_keys"`
	} `yaml:"answer"`
	Followup struct {
		MaxPrefix int `yaml:"max_prefix"`
	} `yaml:"followup"`
	Confidence struct {
		Aliases []string `yaml:"aliases"`
		Default float64  `yaml:"default"`
	} `yaml:"confidence"`
	Score struct {
		Aliases []string `yaml:"aliases"`
		Default float64  `yaml:"default"`
	} `yaml:"score"`
}

func loadSalvageRules() (*salvageRules, error) {
	var r salvageRules
	if err := yaml.Unmarshal(salvageRulesYAML, &r); err != nil {
		return nil, fmt.Errorf("validate: parse salvage_rules.yaml: %w", err)
	}
	return &r, nil
}

// numberRe matches the first decimal number in free text, e.g. "87 out of
// 100" yields 87.
var numberRe = regexp.MustCompile(`\d{1,3}(?:\.\d+)?`)

// salvager runs the per-field recovery strategies for one validation call.
// It mutates the object in place and records every field it touched, in
// touch order, without duplicates.
type salvager struct {
	obj    map[string]any
	schema *schema.Schema
	rules  *salvageRules
	cfg    Config

	touched []string
	seen    map[string]bool

	// answerText caches the answer-kind recovery so the follow-up strategy
	// can reuse it.
	answerText string
}

func newSalvager(obj map[string]any, sc *schema.Schema, rules *salvageRules, cfg Config) *salvager {
	return &salvager{obj: obj, schema: sc, rules: rules, cfg: cfg, seen: make(map[string]bool)}
}

func (s *salvager) record(field string) {
	if s.seen[field] {
		return
	}
	s.seen[field] = true
	s.touched = append(s.touched, field)
}

// strategy is one named field-recovery tactic. Strategies are consulted in
// table order; the first applicable one handles the field. New field kinds
// slot in as new rows, not new branches.
type strategy struct {
	name    string
	applies func(s *salvager, field string) bool
	recover func(s *salvager, field string)
}

// strategyTable orders the recovery strategies. The generic placeholder
// row applies to everything, so every missing required field terminates
// with some value and the pipeline always reaches a verdict.
var strategyTable = []strategy{
	{
		name:    "answer",
		applies: func(s *salvager, field string) bool { return field == "answer" || strings.HasSuffix(field, "_answer") },
		recover: (*salvager).recoverAnswer,
	},
	{
		name:    "followup",
		applies: func(s *salvager, field string) bool { return strings.Contains(field, "question") },
		recover: (*salvager).recoverFollowup,
	},
	{
		name:    "confidence",
		applies: func(s *salvager, field string) bool { return strings.Contains(field, "confidence") },
		recover: (*salvager).recoverConfidence,
	},
	{
		name: "score",
		applies: func(s *salvager, field string) bool {
			return strings.Contains(field, "score") && s.cfg.scoringSchema(s.schema.Name)
		},
		recover: (*salvager).recoverScore,
	},
	{
		name:    "generic",
		applies: func(s *salvager, field string) bool { return true },
		recover: (*salvager).recoverGeneric,
	},
}

// salvageField recovers one missing required field via the first applicable
// strategy. The field is always recorded, placeholder or not.
func (s *salvager) salvageField(field string) {
	for _, st := range strategyTable {
		if st.applies(s, field) {
			st.recover(s, field)
			s.record(field)
			return
		}
	}
}

// recoverAnswer scans alias keys, then a choices-style array, then the
// first non-empty string anywhere on the object; the placeholder sentinel
// closes the gap when everything misses.
func (s *salvager) recoverAnswer(field string) {
	if v, ok := s.scanAliases(s.rules.Answer.Aliases); ok {
		s.obj[field] = v
		s.answerText = v
		return
	}
	if v, ok := s.scanChoices(); ok {
		s.obj[field] = v
		s.answerText = v
		return
	}
	if v, ok := s.firstNonEmptyString(); ok {
		s.obj[field] = v
		s.answerText = v
		return
	}
	s.obj[field] = s.rules.Placeholder
}

// recoverFollowup reuses the answer candidate: first line ending in ? or
// ？, else a capped prefix, else the placeholder.
func (s *salvager) recoverFollowup(field string) {
	candidate := s.answerText
	if candidate == "" {
		if v, ok := s.firstNonEmptyString(); ok {
			candidate = v
		}
	}
	if candidate == "" {
		s.obj[field] = s.rules.Placeholder
		return
	}
	for _, line := range strings.Split(candidate, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, "?") || strings.HasSuffix(line, "？") {
			s.obj[field] = line
			return
		}
	}
	if runes := []rune(candidate); len(runes) > s.rules.Followup.MaxPrefix {
		candidate = string(runes[:s.rules.Followup.MaxPrefix])
	}
	s.obj[field] = candidate
}

// recoverConfidence searches aliases then any number-like substring, then
// normalizes into [0,1]: negative floors to 0, (1,100] reads as a
// percentage, above 100 clamps to 1.
func (s *salvager) recoverConfidence(field string) {
	val, found := s.scanNumeric(s.rules.Confidence.Aliases)
	if !found {
		val = s.rules.Confidence.Default
	}
	s.obj[field] = normalizeConfidence(val)
}

func normalizeConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0.0
	case v > 100:
		return 1.0
	case v > 1:
		return v / 100.0
	default:
		return v
	}
}

// recoverScore searches aliases then any number-like substring, clamped to
// [0,100]. The unrecoverable default comes from config, not a constant.
func (s *salvager) recoverScore(field string) {
	val, found := s.scanNumeric(s.rules.Score.Aliases)
	if !found {
		val = s.scoreDefault()
	}
	if val < 0 {
		val = 0
	}
	if val > 100 {
		val = 100
	}
	s.obj[field] = val
}

func (s *salvager) scoreDefault() float64 {
	if s.cfg.ScoreDefault != 0 {
		return s.cfg.ScoreDefault
	}
	return s.rules.Score.Default
}

// recoverGeneric is the escape hatch for required fields with no dedicated
// strategy: a nil sentinel, recorded, so validation terminates with a
// verdict instead of raising.
func (s *salvager) recoverGeneric(field string) {
	s.obj[field] = nil
}

// --- scan helpers ---

func (s *salvager) scanAliases(aliases []string) (string, bool) {
	for _, alt := range aliases {
		if v, ok := s.obj[alt].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (s *salvager) scanChoices() (string, bool) {
	choices, ok := s.obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		if str, ok := choices[0].(string); ok && strings.TrimSpace(str) != "" {
			return strings.TrimSpace(str), true
		}
		return "", false
	}
	for _, key := range s.rules.Answer.ChoiceKeys {
		if v, ok := first[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// firstNonEmptyString walks the object deterministically: required-field
// order, then sorted schema property names, then the remaining keys
// sorted. Map traversal order never leaks into salvage output.
func (s *salvager) firstNonEmptyString() (string, bool) {
	visited := make(map[string]bool)
	for _, k := range s.traversalOrder(visited) {
		if v, ok := s.obj[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (s *salvager) traversalOrder(visited map[string]bool) []string {
	var order []string
	add := func(k string) {
		if visited[k] {
			return
		}
		visited[k] = true
		if _, present := s.obj[k]; present {
			order = append(order, k)
		}
	}
	for _, k := range s.schema.Required {
		add(k)
	}
	props := make([]string, 0, len(s.schema.Properties))
	for k := range s.schema.Properties {
		props = append(props, k)
	}
	sort.Strings(props)
	for _, k := range props {
		add(k)
	}
	rest := make([]string, 0, len(s.obj))
	for k := range s.obj {
		if !visited[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)
	return order
}

// scanNumeric tries alias fields first (numeric or numeric-looking string
// values), then regex-extracts the first number across all string values
// in deterministic order.
func (s *salvager) scanNumeric(aliases []string) (float64, bool) {
	for _, alt := range aliases {
		v, present := s.obj[alt]
		if !present {
			continue
		}
		if f, ok := asFloat(v); ok {
			return f, true
		}
		if str, ok := v.(string); ok {
			if f, ok := extractNumber(str); ok {
				return f, true
			}
		}
	}
	visited := make(map[string]bool)
	for _, k := range s.traversalOrder(visited) {
		if str, ok := s.obj[k].(string); ok {
			if f, ok := extractNumber(str); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func extractNumber(text string) (float64, bool) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
