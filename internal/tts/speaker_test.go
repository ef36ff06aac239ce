package tts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crux/internal/config"
	"crux/internal/logging"

	openai "github.com/openai/openai-go/v3"
)

func newTestSpeaker(t *testing.T) *Speaker {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.TTS.Mode = "offline"
	cfg.Paths.TTSCacheDir = t.TempDir()
	s := New(cfg, openai.Client{}, logging.NewTestLogger())
	// Tests stub speakOffline, so stay offline even when the host has
	// no espeak binary.
	s.mode = modeOffline
	return s
}

func TestNewStartsOnlineWhenEspeakMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.TTS.Mode = "offline"
	cfg.Paths.TTSCacheDir = t.TempDir()
	s := New(cfg, openai.Client{}, logging.NewTestLogger())
	if s.currentMode() != modeOnline {
		t.Fatal("speaker stayed offline with no espeak binary installed")
	}
}

func TestSpeakBlankIsNoOp(t *testing.T) {
	s := newTestSpeaker(t)
	offline := 0
	s.speakOffline = func(text, voice string) error {
		offline++
		return nil
	}
	s.Speak("")
	s.Speak("   \n")
	if offline != 0 {
		t.Fatalf("offline synth called %d times for blank text", offline)
	}
}

func TestSpeakOfflineRetriesOnceThenSucceeds(t *testing.T) {
	s := newTestSpeaker(t)
	calls := 0
	s.speakOffline = func(text, voice string) error {
		calls++
		if calls == 1 {
			return errors.New("engine wedged")
		}
		return nil
	}
	s.Speak("hello")
	if calls != 2 {
		t.Fatalf("offline synth called %d times, want 2 (fail then retry)", calls)
	}
	if s.currentMode() != modeOffline {
		t.Fatal("speaker downgraded despite successful retry")
	}
}

func TestSpeakDowngradesPermanentlyAfterDoubleFailure(t *testing.T) {
	s := newTestSpeaker(t)
	offline := 0
	s.speakOffline = func(text, voice string) error {
		offline++
		return errors.New("no audio device")
	}
	var mu sync.Mutex
	var online []string
	s.synthOnline = func(ctx context.Context, text, voice string) ([]byte, error) {
		mu.Lock()
		online = append(online, text)
		mu.Unlock()
		return []byte("mp3"), nil
	}
	var played sync.WaitGroup
	s.play = func(path string) { played.Done() }

	played.Add(1)
	s.Speak("first")
	if offline != 2 {
		t.Fatalf("offline synth called %d times, want 2", offline)
	}
	if s.currentMode() != modeOnline {
		t.Fatal("speaker did not downgrade to online mode")
	}

	// Later utterances must not touch the offline engine again.
	played.Add(1)
	s.Speak("second")
	if offline != 2 {
		t.Fatalf("offline synth called again after downgrade (%d calls)", offline)
	}
	waitTimeout(t, &played)
	mu.Lock()
	defer mu.Unlock()
	if len(online) != 2 || online[0] != "first" || online[1] != "second" {
		t.Fatalf("online synth saw %v", online)
	}
}

func TestSpeakOnlineUsesCache(t *testing.T) {
	s := newTestSpeaker(t)
	s.cfg.TTS.Mode = "online"
	s.mode = modeOnline

	synths := 0
	s.synthOnline = func(ctx context.Context, text, voice string) ([]byte, error) {
		synths++
		return []byte("mp3 bytes"), nil
	}
	var played sync.WaitGroup
	s.play = func(path string) { played.Done() }

	played.Add(2)
	s.Speak("playing music.")
	s.Speak("playing music.")
	waitTimeout(t, &played)
	if synths != 1 {
		t.Fatalf("synthesized %d times, want 1 (second hit should come from cache)", synths)
	}
}

func TestSynthFailureDropsUtterance(t *testing.T) {
	s := newTestSpeaker(t)
	s.mode = modeOnline
	s.synthOnline = func(ctx context.Context, text, voice string) ([]byte, error) {
		return nil, errors.New("429")
	}
	playedAny := false
	s.play = func(path string) { playedAny = true }
	s.Speak("hello")
	if playedAny {
		t.Fatal("playback started despite synthesis failure")
	}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback")
	}
}
