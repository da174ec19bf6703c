package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Item is one prompt-corpus entry. When Response is set, the item is
// evaluated offline against the recorded text instead of calling the
// backend (and the retry path is unavailable).
type Item struct {
	ID         string `json:"id"`
	Schema     string `json:"schema"`
	PromptType string `json:"prompt_type"`
	Endpoint   string `json:"endpoint"`
	TaskType   string `json:"task_type"`
	Difficulty string `json:"difficulty"`
	Prompt     string `json:"prompt"`
	Response   string `json:"response,omitempty"`
}

// LoadItems reads items from a JSONL file, one JSON object per line.
// Blank lines are skipped. PromptType defaults to Schema.
func LoadItems(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open items: %w", err)
	}
	defer f.Close()

	var items []Item
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var it Item
		if err := json.Unmarshal([]byte(line), &it); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, lineNo, err)
		}
		if it.ID == "" {
			return nil, fmt.Errorf("parse %s line %d: missing id", path, lineNo)
		}
		if it.PromptType == "" {
			it.PromptType = it.Schema
		}
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return items, nil
}
