// Package store persists validation runs and per-item results.
// CLI and MCP code use only the Store interface; the implementation is
// SQLite or in-memory.
package store

// DefaultDBPath is the default relative path for the SQLite DB
// (per-workspace). Open() creates the parent dir.
const DefaultDBPath = ".proctor/proctor.db"

// Run is one validation or evaluation run over a set of items.
type Run struct {
	ID        string // uuid
	Backend   string
	Fallback  string
	StartedAt string
	EndedAt   string
	Items     int
}

// Result is the stored terminal outcome for one item in a run.
type Result struct {
	ID             int64
	RunID          string
	ItemID         string
	Schema         string
	PromptType     string
	Endpoint       string
	Pass           bool
	Salvaged       bool // passed only through field repair
	ErrorKind      string
	Detail         string
	SalvagedFields string // space-joined field names
	Retried        bool
	FallbackAction string
	LatencyMS      float64
	CreatedAt      string
}

// PassRate aggregates item outcomes per schema.
type PassRate struct {
	Schema    string
	Total     int
	CleanPass int
	Salvaged  int
	Failed    int
}

// Store is the persistence facade for runs and results.
type Store interface {
	CreateRun(r *Run) error
	// FinishRun stamps the end time and final item count.
	FinishRun(id, endedAt string, items int) error
	GetRun(id string) (*Run, error)
	ListRuns() ([]*Run, error)

	SaveResult(res *Result) (int64, error)
	ListResultsByRun(runID string) ([]*Result, error)

	// PassRates aggregates per schema; an empty runID covers all runs.
	PassRates(runID string) ([]PassRate, error)

	Close() error
}
