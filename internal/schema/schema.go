// Package schema loads and caches the response schemas the validation
// engine enforces. Schemas are loaded once (embedded defaults plus an
// optional directory) and are read-only afterwards, so concurrent
// validation calls need no locking.
package schema

import (
	"encoding/json"
	"fmt"
)

// Field types understood by the checker. Deliberately smaller than JSON
// Schema: free-text model output does not earn more than this.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
)

// FieldRule constrains a single property.
type FieldRule struct {
	Type      string   `json:"type"`
	MinLength int      `json:"minLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
}

// Numeric reports whether the rule's type is number or integer.
func (r FieldRule) Numeric() bool {
	return r.Type == TypeNumber || r.Type == TypeInteger
}

// Schema is one named response contract: required fields, per-field rules,
// and the additional-properties policy. Immutable once loaded.
type Schema struct {
	Name                 string               `json:"-"`
	Required             []string             `json:"required"`
	Properties           map[string]FieldRule `json:"properties"`
	AdditionalProperties *bool                `json:"additionalProperties,omitempty"`
}

// AllowsExtras reports the additional-properties policy. Absent means
// permissive, matching the external definition format.
func (s *Schema) AllowsExtras() bool {
	return s.AdditionalProperties == nil || *s.AdditionalProperties
}

// Rule returns the FieldRule for name, if declared.
func (s *Schema) Rule(name string) (FieldRule, bool) {
	r, ok := s.Properties[name]
	return r, ok
}

// IsRequired reports whether name appears in the required set.
func (s *Schema) IsRequired(name string) bool {
	for _, f := range s.Required {
		if f == name {
			return true
		}
	}
	return false
}

// Parse decodes a schema definition and checks it is internally sound.
// A schema that fails here is corrupt; the engine surfaces that as an
// internal error, never as a candidate failure.
func Parse(name string, data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema %q: decode: %w", name, err)
	}
	s.Name = name
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}
	return &s, nil
}

func (s *Schema) validate() error {
	for field, rule := range s.Properties {
		switch rule.Type {
		case TypeString, TypeNumber, TypeInteger:
		default:
			return fmt.Errorf("property %q: unknown type %q", field, rule.Type)
		}
		if rule.MinLength < 0 {
			return fmt.Errorf("property %q: negative minLength", field)
		}
		if rule.Minimum != nil && rule.Maximum != nil && *rule.Minimum > *rule.Maximum {
			return fmt.Errorf("property %q: minimum above maximum", field)
		}
	}
	return nil
}
