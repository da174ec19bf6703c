package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"proctor/internal/schema"
)

// hardError aborts the check pipeline with a classified failure.
type hardError struct {
	kind   ErrorKind
	detail string
}

func (e *hardError) Error() string { return fmt.Sprintf("%s: %s", e.kind, e.detail) }

// check enforces the schema against a normalized object. Order is fixed:
// additional-properties first (so injected keys are never masked by
// salvage), then required-field salvage, then type/range rules, then the
// semantic follow-up-question rule. The first hard failure short-circuits;
// partially salvaged fields ride along on the failed verdict.
func (s *salvager) check() *hardError {
	if err := s.checkExtras(); err != nil {
		return err
	}
	for _, req := range s.schema.Required {
		if _, present := s.obj[req]; !present {
			s.salvageField(req)
		}
	}
	if err := s.checkRules(); err != nil {
		return err
	}
	return s.checkFollowup()
}

func (s *salvager) checkExtras() *hardError {
	if s.schema.AllowsExtras() {
		return nil
	}
	var extra []string
	for k := range s.obj {
		if _, ok := s.schema.Properties[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return &hardError{KindSchema, "extra_properties:[" + strings.Join(extra, " ") + "]"}
}

func (s *salvager) checkRules() *hardError {
	names := make([]string, 0, len(s.schema.Properties))
	for k := range s.schema.Properties {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		val, present := s.obj[k]
		if !present {
			continue
		}
		rule := s.schema.Properties[k]
		var err *hardError
		switch {
		case rule.Type == schema.TypeString:
			err = s.checkString(k, rule, val)
		case rule.Numeric():
			err = s.checkNumeric(k, rule, val)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkString enforces string type and minLength. No coercion: a
// non-string in a string field is a contract breach, not a gap.
func (s *salvager) checkString(k string, rule schema.FieldRule, val any) *hardError {
	str, ok := val.(string)
	if !ok {
		return &hardError{KindSchema, "type:" + k}
	}
	if rule.MinLength > 0 && utf8.RuneCountInString(str) < rule.MinLength {
		return &hardError{KindSemantic, k + "_too_short"}
	}
	return nil
}

// checkNumeric enforces number/integer rules with best-effort coercion:
// the first decimal number is extracted from a string value and recorded
// as coerced_<field>. The scoring schema alone falls back to the
// configured default score when coercion fails.
func (s *salvager) checkNumeric(k string, rule schema.FieldRule, val any) *hardError {
	f, ok := asFloat(val)
	if !ok {
		str, isStr := val.(string)
		if isStr {
			if extracted, found := extractNumber(str); found {
				f = extracted
				s.obj[k] = f
				s.record("coerced_" + k)
				ok = true
			}
		}
		if !ok {
			if s.cfg.scoringSchema(s.schema.Name) {
				f = s.scoreDefault()
				s.obj[k] = f
				s.record(k)
				ok = true
			} else {
				return &hardError{KindSchema, "type:" + k}
			}
		}
	}
	if rule.Type == schema.TypeInteger && f != math.Trunc(f) {
		return &hardError{KindSchema, "type:" + k}
	}
	if rule.Minimum != nil && f < *rule.Minimum {
		return &hardError{KindSemantic, k + "_too_small"}
	}
	if rule.Maximum != nil && f > *rule.Maximum {
		return &hardError{KindSemantic, k + "_too_large"}
	}
	return nil
}

// checkFollowup applies the schema-specific semantic rule: a non-empty
// follow-up-question field must end with ? (or the full-width ？). Short
// values get the mark appended and count as salvaged; long non-questions
// that are not themselves a salvage placeholder fail.
func (s *salvager) checkFollowup() *hardError {
	keys := make([]string, 0, len(s.obj))
	for k := range s.obj {
		if strings.Contains(k, "question") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		str, ok := s.obj[k].(string)
		if !ok || strings.TrimSpace(str) == "" {
			continue
		}
		trimmed := strings.TrimSpace(str)
		if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？") {
			continue
		}
		if utf8.RuneCountInString(trimmed) < 300 {
			s.obj[k] = trimmed + "?"
			s.record(k)
			continue
		}
		if trimmed == s.rules.Placeholder {
			continue
		}
		return &hardError{KindSemantic, k + "_not_question"}
	}
	return nil
}
