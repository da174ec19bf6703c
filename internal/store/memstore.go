package store

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests. Implements Store.
type MemStore struct {
	mu      sync.Mutex
	runs    map[string]*Run
	results []*Result
	nextID  int64
}

// NewMemStore returns a new in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string]*Run), nextID: 1}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) CreateRun(r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %q already exists", r.ID)
	}
	if r.StartedAt == "" {
		r.StartedAt = nowUTC()
	}
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *MemStore) FinishRun(id, endedAt string, items int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("finish run: no run %q", id)
	}
	if endedAt == "" {
		endedAt = nowUTC()
	}
	r.EndedAt = endedAt
	r.Items = items
	return nil
}

func (s *MemStore) GetRun(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) ListRuns() ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt < out[j].StartedAt })
	return out, nil
}

func (s *MemStore) SaveResult(res *Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.CreatedAt == "" {
		res.CreatedAt = nowUTC()
	}
	res.ID = s.nextID
	s.nextID++
	cp := *res
	s.results = append(s.results, &cp)
	return res.ID, nil
}

func (s *MemStore) ListResultsByRun(runID string) ([]*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Result
	for _, r := range s.results {
		if r.RunID == runID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemStore) PassRates(runID string) ([]PassRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := make(map[string]*PassRate)
	for _, r := range s.results {
		if runID != "" && r.RunID != runID {
			continue
		}
		pr, ok := agg[r.Schema]
		if !ok {
			pr = &PassRate{Schema: r.Schema}
			agg[r.Schema] = pr
		}
		pr.Total++
		switch {
		case r.Pass && !r.Salvaged:
			pr.CleanPass++
		case r.Pass:
			pr.Salvaged++
		default:
			pr.Failed++
		}
	}
	names := make([]string, 0, len(agg))
	for name := range agg {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]PassRate, 0, len(names))
	for _, name := range names {
		out = append(out, *agg[name])
	}
	return out, nil
}
