// Package audit appends conversation entries to a JSON-lines file, one
// object per line: {"ts": ..., "role": ..., "text": ...}.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crux/internal/event"
)

// Entry is one audit record.
type Entry struct {
	TS   string `json:"ts"` // ISO-8601 UTC
	Role string `json:"role"`
	Text string `json:"text"`
}

// Log is an append-only JSONL conversation log. The path is an explicit
// constructor argument, not shared global state.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a Log writing to path. The file is created on first append.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Append writes one entry. Failures are returned to the caller to log;
// they never abort the conversation.
func (l *Log) Append(role event.Role, text string) error {
	if l.path == "" {
		return nil
	}
	entry := Entry{
		TS:   l.now().UTC().Format(time.RFC3339),
		Role: string(role),
		Text: text,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
