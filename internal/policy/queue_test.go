package policy

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReviewQueue_HeaderWrittenOnce(t *testing.T) {
	path := t.TempDir() + "/review.csv"
	q := OpenReviewQueue(path)

	for i := 0; i < 3; i++ {
		if err := q.Append(ReviewRecord{ID: "x", ErrorType: "format_error"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("file has %d lines, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,prompt_type,endpoint,validator_error_type") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[2], "validator_error_type") {
		t.Error("header repeated in body")
	}
}

func TestReviewQueue_AppendsToExistingFile(t *testing.T) {
	path := t.TempDir() + "/review.csv"
	if err := OpenReviewQueue(path).Append(ReviewRecord{ID: "first"}); err != nil {
		t.Fatal(err)
	}
	// A fresh handle on the same file must append, not rewrite the header.
	if err := OpenReviewQueue(path).Append(ReviewRecord{ID: "second"}); err != nil {
		t.Fatal(err)
	}
	recs, err := OpenReviewQueue(path).Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "first" || recs[1].ID != "second" {
		t.Errorf("records = %+v", recs)
	}
}

func TestReviewQueue_TruncatesSnippets(t *testing.T) {
	q := OpenReviewQueue(t.TempDir() + "/review.csv")
	long := strings.Repeat("z", snippetLimit+500)
	if err := q.Append(ReviewRecord{ID: "x", ErrorInfo: long, OriginalResponse: long}); err != nil {
		t.Fatal(err)
	}
	recs, err := q.Read()
	if err != nil {
		t.Fatal(err)
	}
	for _, got := range []string{recs[0].ErrorInfo, recs[0].OriginalResponse} {
		if len(got) != snippetLimit+3 || !strings.HasSuffix(got, "...") {
			t.Errorf("snippet length = %d, want %d with ellipsis", len(got), snippetLimit+3)
		}
	}
}

func TestReviewQueue_SnippetCutsOnRuneBoundary(t *testing.T) {
	q := OpenReviewQueue(t.TempDir() + "/review.csv")
	long := strings.Repeat("调", snippetLimit+10)
	if err := q.Append(ReviewRecord{ID: "x", OriginalResponse: long}); err != nil {
		t.Fatal(err)
	}
	recs, err := q.Read()
	if err != nil {
		t.Fatal(err)
	}
	got := recs[0].OriginalResponse
	if !utf8.ValidString(got) {
		t.Fatalf("snippet is not valid UTF-8: %q", got[:12])
	}
	if n := utf8.RuneCountInString(got); n != snippetLimit+3 {
		t.Errorf("snippet = %d runes, want %d", n, snippetLimit+3)
	}
}

func TestReviewQueue_ReadMissingFile(t *testing.T) {
	recs, err := OpenReviewQueue(t.TempDir() + "/nope.csv").Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if recs != nil {
		t.Errorf("records = %v, want empty", recs)
	}
}
