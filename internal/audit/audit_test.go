package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"crux/internal/event"
)

func TestAppendWritesOneJSONObjectPerLine(t *testing.T) {
	dir := t.TempDir()
	l := New(dir + "/conversation.jsonl")
	l.now = func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}

	if err := l.Append(event.RoleUser, "open notepad"); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if err := l.Append(event.RoleAssistant, "Opening notepad."); err != nil {
		t.Fatalf("append assistant: %v", err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entries))
	}
	if entries[0].Role != "user" || entries[0].Text != "open notepad" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].TS != "2024-05-01T12:00:00Z" {
		t.Fatalf("timestamp not ISO-8601 UTC: %q", entries[0].TS)
	}
	if entries[1].Role != "assistant" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestAppendWithEmptyPathIsNoop(t *testing.T) {
	l := New("")
	if err := l.Append(event.RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
}
