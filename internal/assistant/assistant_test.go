package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"crux/internal/audit"
	"crux/internal/command"
	"crux/internal/config"
	"crux/internal/event"
	"crux/internal/logging"
)

type fakeVoice struct {
	mu     sync.Mutex
	spoken []string
}

func (v *fakeVoice) Speak(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spoken = append(v.spoken, text)
}

func (v *fakeVoice) all() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.spoken...)
}

type fakeEars struct {
	started int
	stopped int
	err     error
}

func (e *fakeEars) Start() error { e.started++; return e.err }
func (e *fakeEars) Stop()        { e.stopped++ }

type fakeActions struct {
	launched []string
	volume   bool
}

func (f *fakeActions) Launch(app, launch string) error {
	f.launched = append(f.launched, launch)
	return nil
}
func (f *fakeActions) OpenURL(url string) error      { return nil }
func (f *fakeActions) VolumeAvailable() bool         { return f.volume }
func (f *fakeActions) VolumeUp(step int) error       { return nil }
func (f *fakeActions) VolumeDown(step int) error     { return nil }
func (f *fakeActions) BrightnessAvailable() bool     { return false }
func (f *fakeActions) BrightnessUp(step int) error   { return nil }
func (f *fakeActions) BrightnessDown(step int) error { return nil }
func (f *fakeActions) Shutdown() error               { return errors.New("not in tests") }
func (f *fakeActions) Restart() error                { return errors.New("not in tests") }
func (f *fakeActions) PlayMusic(path string) error   { return nil }

type harness struct {
	a       *Assistant
	voice   *fakeVoice
	ears    *fakeEars
	events  []event.Event
	actions *fakeActions
	audit   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Apps = map[string]string{"notepad": "notepad.exe"}
	cfg.GPT.Enabled = false

	h := &harness{
		voice:   &fakeVoice{},
		ears:    &fakeEars{},
		actions: &fakeActions{},
		audit:   filepath.Join(t.TempDir(), "conversation.jsonl"),
	}
	logger := logging.NewTestLogger()
	sink := event.Sink(func(e event.Event) { h.events = append(h.events, e) })
	registry := command.NewRegistry(cfg, h.actions, logger)
	h.a = New(cfg, logger, sink, audit.New(h.audit), registry, nil, h.voice, h.ears)
	return h
}

// drain routes everything queued so far on the test goroutine.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for {
		select {
		case u := <-h.a.queue:
			h.a.handle(context.Background(), u)
		default:
			return
		}
	}
}

func (h *harness) transcripts() []event.Event {
	var out []event.Event
	for _, e := range h.events {
		if e.Type == event.TypeTranscript {
			out = append(out, e)
		}
	}
	return out
}

func TestSpokenOpenCommandEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.a.SubmitSpoken("crux open notepad")
	h.drain(t)

	if got := h.voice.all(); len(got) != 1 || got[0] != "Opening notepad." {
		t.Fatalf("spoken = %v, want [Opening notepad.]", got)
	}
	if len(h.actions.launched) != 1 || h.actions.launched[0] != "notepad.exe" {
		t.Fatalf("launched = %v", h.actions.launched)
	}
	ts := h.transcripts()
	if len(ts) != 2 {
		t.Fatalf("got %d transcript events, want 2", len(ts))
	}
	if ts[0].Role != event.RoleUser || ts[0].Text != "open notepad" {
		t.Fatalf("user transcript = %+v", ts[0])
	}
	if ts[1].Role != event.RoleAssistant || ts[1].Text != "Opening notepad." {
		t.Fatalf("assistant transcript = %+v", ts[1])
	}

	data, err := os.ReadFile(h.audit)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit has %d lines, want 2:\n%s", len(lines), data)
	}
}

func TestWakeWordOnlyUtteranceIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.a.SubmitSpoken("crux")
	h.a.SubmitSpoken("  CRUX  ")
	h.drain(t)

	if got := h.voice.all(); len(got) != 0 {
		t.Fatalf("spoke %v for wake-word-only input", got)
	}
	if ts := h.transcripts(); len(ts) != 0 {
		t.Fatalf("got %d transcript events, want 0", len(ts))
	}
}

func TestSpokenTextWithoutWakeWordPassesThrough(t *testing.T) {
	h := newHarness(t)
	h.a.SubmitSpoken("open notepad")
	h.drain(t)
	if got := h.voice.all(); len(got) != 1 || got[0] != "Opening notepad." {
		t.Fatalf("spoken = %v", got)
	}
}

func TestOnlyFirstWakeWordOccurrenceIsStripped(t *testing.T) {
	h := newHarness(t)
	h.a.SubmitSpoken("crux crux write bubble sort")
	h.drain(t)
	ts := h.transcripts()
	if len(ts) == 0 || ts[0].Text != "crux write bubble sort" {
		t.Fatalf("transcripts = %+v", ts)
	}
	got := h.voice.all()
	if len(got) != 1 || !strings.Contains(got[0], "def bubble_sort") {
		t.Fatalf("spoken = %v, want bubble sort snippet", got)
	}
}

func TestTypedTextSkipsWakeStripping(t *testing.T) {
	h := newHarness(t)
	// Typed input keeps "crux" so the write rule's prefix can match.
	h.a.SubmitTyped("crux write bubble sort")
	h.drain(t)
	got := h.voice.all()
	if len(got) != 1 || !strings.Contains(got[0], "def bubble_sort") {
		t.Fatalf("spoken = %v", got)
	}
}

func TestUnmatchedWithoutGPTGetsFixedReply(t *testing.T) {
	h := newHarness(t)
	h.a.SubmitTyped("what is the weather")
	h.drain(t)
	if got := h.voice.all(); len(got) != 1 || got[0] != "I don't understand. Please try again." {
		t.Fatalf("spoken = %v", got)
	}
}

func TestQueuePreservesSubmissionOrder(t *testing.T) {
	h := newHarness(t)
	h.a.SubmitTyped("open notepad")
	h.a.SubmitSpoken("crux play music")
	h.a.SubmitTyped("open notepad")
	h.drain(t)

	want := []string{"Opening notepad.", "Music path not configured.", "Opening notepad."}
	got := h.voice.all()
	if len(got) != len(want) {
		t.Fatalf("spoken = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("spoken[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListeningToggleIsIdempotent(t *testing.T) {
	h := newHarness(t)
	if err := h.a.StartListening(); err != nil {
		t.Fatal(err)
	}
	if err := h.a.StartListening(); err != nil {
		t.Fatal(err)
	}
	if h.ears.started != 1 {
		t.Fatalf("ears started %d times, want 1", h.ears.started)
	}
	if !h.a.Listening() {
		t.Fatal("Listening() = false after StartListening")
	}
	h.a.StopListening()
	h.a.StopListening()
	if h.ears.stopped != 1 {
		t.Fatalf("ears stopped %d times, want 1", h.ears.stopped)
	}

	var statuses []string
	for _, e := range h.events {
		if e.Type == event.TypeStatus {
			statuses = append(statuses, e.Message)
		}
	}
	if len(statuses) != 2 || statuses[0] != "Listening..." || statuses[1] != "Mic muted" {
		t.Fatalf("status events = %v", statuses)
	}
}

func TestStartListeningSurfacesMicError(t *testing.T) {
	h := newHarness(t)
	h.ears.err = errors.New("no mic")
	if err := h.a.StartListening(); err == nil {
		t.Fatal("StartListening() = nil, want error")
	}
	if h.a.Listening() {
		t.Fatal("listening flag set despite Start failure")
	}
}
