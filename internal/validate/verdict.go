// Package validate implements the response validation and salvage engine:
// parse/normalize a raw model output, enforce a named schema with bounded
// heuristic repair of missing or malformed fields, and classify the outcome
// into a fixed verdict taxonomy.
//
// The engine is synchronous and stateless per call; it is safe for
// concurrent use once the schema registry is populated.
package validate

// ErrorKind is the closed failure taxonomy. No other category is surfaced
// to callers.
type ErrorKind string

const (
	// KindNone marks a clean pass (errorKind null on the wire).
	KindNone ErrorKind = ""
	// KindFormat: candidate is not parseable as structured data.
	KindFormat ErrorKind = "format_error"
	// KindSchema: wrong type, or a disallowed extra field is present.
	KindSchema ErrorKind = "schema_error"
	// KindSemantic: value present and well-typed but fails a domain rule.
	KindSemantic ErrorKind = "semantic_error"
	// KindSalvaged: one or more required/malformed fields were recovered
	// heuristically and no hard violation remains.
	KindSalvaged ErrorKind = "salvaged_missing"
	// KindInternal: unexpected failure inside the engine itself. Never
	// retryable, never silently swallowed.
	KindInternal ErrorKind = "internal"
)

// Verdict is the engine's structured outcome for one validation call.
//
// OK=true with non-empty SalvagedFields means "passed, but repaired" —
// distinct from a clean pass. OK=false may still carry partially salvaged
// fields for observability.
type Verdict struct {
	OK             bool      `json:"ok"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	SalvagedFields []string  `json:"salvaged_fields,omitempty"`
}

// Clean reports a pass with no repair.
func (v Verdict) Clean() bool {
	return v.OK && v.ErrorKind == KindNone
}

// Salvaged reports a pass that needed repair.
func (v Verdict) Salvaged() bool {
	return v.OK && v.ErrorKind == KindSalvaged
}

// Context carries per-call identity for tracing. Created per call and
// discarded once the verdict is returned.
type Context struct {
	Schema     string
	RequestID  string
	PromptType string
}

func pass(salvaged []string, detail string) Verdict {
	if len(salvaged) > 0 {
		return Verdict{OK: true, ErrorKind: KindSalvaged, Detail: detail, SalvagedFields: salvaged}
	}
	return Verdict{OK: true, Detail: detail}
}

func fail(kind ErrorKind, detail string, salvaged []string) Verdict {
	return Verdict{OK: false, ErrorKind: kind, Detail: detail, SalvagedFields: salvaged}
}
