// Package backend provides adapters to the upstream LLM endpoints whose
// responses proctor validates: a deterministic stub for tests and offline
// evaluation, and an HTTP client for a real completion service.
package backend

import "context"

// Request is one upstream completion call.
type Request struct {
	ID         string `json:"id"`
	PromptType string `json:"prompt_type"`
	Prompt     string `json:"prompt"`
	// Retry marks the deterministic second attempt issued after a
	// validation failure; upstreams lower temperature for these.
	Retry bool `json:"retry"`
}

// Response carries the raw model text and the observed call latency.
type Response struct {
	Text      string
	LatencyMS float64
}

// Backend produces raw model output for a request. Implementations must be
// safe for concurrent use.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}
