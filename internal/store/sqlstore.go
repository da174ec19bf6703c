package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// SqlStore implements Store with SQLite (pure-Go driver, no cgo).
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and applies the schema.
func Open(path string) (*SqlStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return open(path)
}

// OpenMemory opens an in-memory SQLite DB for testing.
func OpenMemory() (*SqlStore, error) {
	return open(":memory:")
}

func open(dsn string) (*SqlStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver serializes access per connection; a single connection
	// avoids table-lock errors under concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) CreateRun(r *Run) error {
	if r.StartedAt == "" {
		r.StartedAt = nowUTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs(id, backend, fallback, started_at, ended_at, items)
		 VALUES(?, ?, ?, ?, NULL, ?)`,
		r.ID, r.Backend, r.Fallback, r.StartedAt, r.Items,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SqlStore) FinishRun(id, endedAt string, items int) error {
	if endedAt == "" {
		endedAt = nowUTC()
	}
	res, err := s.db.Exec(
		`UPDATE runs SET ended_at = ?, items = ? WHERE id = ?`,
		endedAt, items, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: no run %q", id)
	}
	return nil
}

func (s *SqlStore) GetRun(id string) (*Run, error) {
	var r Run
	var ended sql.NullString
	err := s.db.QueryRow(
		`SELECT id, backend, fallback, started_at, ended_at, items FROM runs WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Backend, &r.Fallback, &r.StartedAt, &ended, &r.Items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.EndedAt = nullStr(ended)
	return &r, nil
}

func (s *SqlStore) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, backend, fallback, started_at, ended_at, items FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var r Run
		var ended sql.NullString
		if err := rows.Scan(&r.ID, &r.Backend, &r.Fallback, &r.StartedAt, &ended, &r.Items); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.EndedAt = nullStr(ended)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SqlStore) SaveResult(res *Result) (int64, error) {
	if res.CreatedAt == "" {
		res.CreatedAt = nowUTC()
	}
	r, err := s.db.Exec(
		`INSERT INTO results(run_id, item_id, schema, prompt_type, endpoint,
		        pass, salvaged, error_kind, detail, salvaged_fields,
		        retried, fallback_action, latency_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.ItemID, res.Schema, res.PromptType, res.Endpoint,
		boolInt(res.Pass), boolInt(res.Salvaged), res.ErrorKind, res.Detail, res.SalvagedFields,
		boolInt(res.Retried), res.FallbackAction, res.LatencyMS, res.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	res.ID = id
	return id, nil
}

func (s *SqlStore) ListResultsByRun(runID string) ([]*Result, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, item_id, schema, prompt_type, endpoint,
		        pass, salvaged, error_kind, detail, salvaged_fields,
		        retried, fallback_action, latency_ms, created_at
		 FROM results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		var res Result
		var pass, salvaged, retried int
		if err := rows.Scan(&res.ID, &res.RunID, &res.ItemID, &res.Schema, &res.PromptType, &res.Endpoint,
			&pass, &salvaged, &res.ErrorKind, &res.Detail, &res.SalvagedFields,
			&retried, &res.FallbackAction, &res.LatencyMS, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Pass = pass == 1
		res.Salvaged = salvaged == 1
		res.Retried = retried == 1
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (s *SqlStore) PassRates(runID string) ([]PassRate, error) {
	q := `SELECT schema,
	             COUNT(*),
	             SUM(CASE WHEN pass = 1 AND salvaged = 0 THEN 1 ELSE 0 END),
	             SUM(CASE WHEN pass = 1 AND salvaged = 1 THEN 1 ELSE 0 END),
	             SUM(CASE WHEN pass = 0 THEN 1 ELSE 0 END)
	      FROM results`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` GROUP BY schema ORDER BY schema`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("pass rates: %w", err)
	}
	defer rows.Close()

	var out []PassRate
	for rows.Next() {
		var pr PassRate
		if err := rows.Scan(&pr.Schema, &pr.Total, &pr.CleanPass, &pr.Salvaged, &pr.Failed); err != nil {
			return nil, fmt.Errorf("scan pass rate: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
