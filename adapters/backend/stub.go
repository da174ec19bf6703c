package backend

import (
	"context"
	"fmt"
	"sync"
)

// Script holds the canned responses for one prompt type: the first-attempt
// text and, optionally, the text returned on retry.
type Script struct {
	First string
	Retry string
}

// StubBackend returns pre-authored responses keyed by request ID, falling
// back to the prompt-type script. Deterministic: exercises the validation
// and policy machinery without LLM variance. Thread-safe: the call log is
// protected by a mutex for parallel mode.
type StubBackend struct {
	mu      sync.Mutex
	byID    map[string]Script
	byType  map[string]Script
	calls   map[string]int
	latency float64
}

func NewStubBackend() *StubBackend {
	return &StubBackend{
		byID:    make(map[string]Script),
		byType:  make(map[string]Script),
		calls:   make(map[string]int),
		latency: 1.0,
	}
}

func (b *StubBackend) Name() string { return "stub" }

// ScriptID registers responses for one request ID.
func (b *StubBackend) ScriptID(id string, s Script) *StubBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[id] = s
	return b
}

// ScriptType registers fallback responses for a prompt type.
func (b *StubBackend) ScriptType(promptType string, s Script) *StubBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[promptType] = s
	return b
}

// SetLatency fixes the reported per-call latency in milliseconds.
func (b *StubBackend) SetLatency(ms float64) *StubBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = ms
	return b
}

// Calls returns how many times the given request ID was completed.
func (b *StubBackend) Calls(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[id]
}

func (b *StubBackend) Complete(_ context.Context, req Request) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[req.ID]++

	s, ok := b.byID[req.ID]
	if !ok {
		s, ok = b.byType[req.PromptType]
	}
	if !ok {
		return Response{}, fmt.Errorf("stub: no script for %q (%s)", req.ID, req.PromptType)
	}

	text := s.First
	if req.Retry {
		if s.Retry == "" {
			// No corrected variant scripted: the retry reproduces the
			// original failure.
			text = s.First
		} else {
			text = s.Retry
		}
	}
	return Response{Text: text, LatencyMS: b.latency}, nil
}
