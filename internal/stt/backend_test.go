package stt

import (
	"context"
	"errors"
	"testing"

	"crux/internal/config"
	"crux/internal/logging"

	openai "github.com/openai/openai-go/v3"
)

type fakeEngine struct {
	text string
	err  error
}

func (f *fakeEngine) Transcribe(ctx context.Context, samples []float32, lang string) (string, error) {
	return f.text, f.err
}
func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func TestOfflineUnavailableFallsBackToHosted(t *testing.T) {
	// Without the whisper build tag the offline engine cannot load, so
	// the backend must settle on the hosted API.
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.STT.Mode = "offline"
	cfg.STT.PreferredEngine = "whisper"

	b := NewBackend(cfg, openai.Client{}, logging.NewTestLogger())
	if got := b.EngineName(); got != "hosted" {
		t.Fatalf("EngineName() = %q, want %q", got, "hosted")
	}
}

func TestRecognizeErrorReturnsEmpty(t *testing.T) {
	b := &Backend{
		engine: &fakeEngine{err: errors.New("boom")},
		logger: logging.NewTestLogger(),
		lang:   func() string { return "en" },
	}
	if got := b.Recognize(context.Background(), []float32{0.1, 0.2}); got != "" {
		t.Fatalf("Recognize() = %q, want empty", got)
	}
}

func TestRecognizeTrimsWhitespace(t *testing.T) {
	b := &Backend{
		engine: &fakeEngine{text: "  open notepad \n"},
		logger: logging.NewTestLogger(),
		lang:   func() string { return "en" },
	}
	if got := b.Recognize(context.Background(), nil); got != "open notepad" {
		t.Fatalf("Recognize() = %q, want %q", got, "open notepad")
	}
}

func TestResampleLinearLength(t *testing.T) {
	in := make([]float32, 48000)
	out := resampleLinear(in, 48000, 16000)
	if len(out) != 16000 {
		t.Fatalf("resampled length = %d, want 16000", len(out))
	}
	same := resampleLinear(in, 16000, 16000)
	if len(same) != len(in) {
		t.Fatalf("identity resample length = %d, want %d", len(same), len(in))
	}
}

func TestDownmixAverages(t *testing.T) {
	in := []float32{1, 0, 0.5, 0.5}
	out := downmix(in, 2)
	if len(out) != 2 {
		t.Fatalf("downmix length = %d, want 2", len(out))
	}
	if out[0] != 0.5 || out[1] != 0.5 {
		t.Fatalf("downmix = %v, want [0.5 0.5]", out)
	}
}
