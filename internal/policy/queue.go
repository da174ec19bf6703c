package policy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// snippetLimit caps the free-text columns of a review record so a single
// runaway response cannot bloat the queue file.
const snippetLimit = 1024

var reviewHeader = []string{
	"id", "prompt_type", "endpoint",
	"validator_error_type", "validator_error_info_snippet",
	"original_response_snippet", "timestamp",
}

// ReviewRecord is one row in the human-review queue CSV.
type ReviewRecord struct {
	ID               string
	PromptType       string
	Endpoint         string
	ErrorType        string
	ErrorInfo        string
	OriginalResponse string
	Timestamp        time.Time
}

// ReviewQueue is an append-only CSV file of items awaiting human review.
// Appends are serialized; the header is written exactly once, when the
// file is first created.
type ReviewQueue struct {
	path string
	mu   sync.Mutex
}

// OpenReviewQueue returns a queue backed by the CSV at path. The file is
// created lazily on the first append.
func OpenReviewQueue(path string) *ReviewQueue {
	return &ReviewQueue{path: path}
}

// Path returns the backing file path.
func (q *ReviewQueue) Path() string { return q.path }

// Append writes one record, creating the file with its header if needed.
// A zero Timestamp is filled with the current UTC time.
func (q *ReviewQueue) Append(rec ReviewRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, created, err := q.open()
	if err != nil {
		return fmt.Errorf("open review queue %s: %w", q.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if created {
		if err := w.Write(reviewHeader); err != nil {
			return fmt.Errorf("write review queue header: %w", err)
		}
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := w.Write(rec.row()); err != nil {
		return fmt.Errorf("write review queue row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// open creates the file exclusively, falling back to append when it
// already exists, so exactly one writer ever emits the header.
func (q *ReviewQueue) open() (*os.File, bool, error) {
	f, err := os.OpenFile(q.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, false, err
	}
	f, err = os.OpenFile(q.path, os.O_WRONLY|os.O_APPEND, 0o644)
	return f, false, err
}

func (rec ReviewRecord) row() []string {
	return []string{
		rec.ID,
		rec.PromptType,
		rec.Endpoint,
		rec.ErrorType,
		snippet(rec.ErrorInfo),
		snippet(rec.OriginalResponse),
		rec.Timestamp.Format(time.RFC3339),
	}
}

// Read returns every record currently in the queue. A missing file is an
// empty queue, not an error.
func (q *ReviewQueue) Read() ([]ReviewRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open review queue %s: %w", q.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(reviewHeader)
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read review queue header: %w", err)
	}
	var recs []ReviewRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read review queue row: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339, row[6])
		recs = append(recs, ReviewRecord{
			ID:               row[0],
			PromptType:       row[1],
			Endpoint:         row[2],
			ErrorType:        row[3],
			ErrorInfo:        row[4],
			OriginalResponse: row[5],
			Timestamp:        ts,
		})
	}
	return recs, nil
}

// snippet truncates free text to snippetLimit characters, marking the
// cut. Truncation lands on a rune boundary.
func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLimit {
		return s
	}
	return string(runes[:snippetLimit]) + "..."
}
