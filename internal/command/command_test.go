package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crux/internal/config"
	"crux/internal/logging"
)

// fakeActions records calls and returns scripted errors.
type fakeActions struct {
	launched    []string
	urls        []string
	volume      int
	volumeOK    bool
	volumeErr   error
	brightOK    bool
	brightErr   error
	shutdowns   int
	restarts    int
	musicPlayed []string
}

func (f *fakeActions) Launch(app, launch string) error {
	f.launched = append(f.launched, launch)
	return nil
}
func (f *fakeActions) OpenURL(url string) error {
	f.urls = append(f.urls, url)
	return nil
}
func (f *fakeActions) VolumeAvailable() bool { return f.volumeOK }
func (f *fakeActions) VolumeUp(step int) error {
	if f.volumeErr != nil {
		return f.volumeErr
	}
	f.volume += step
	return nil
}
func (f *fakeActions) VolumeDown(step int) error {
	if f.volumeErr != nil {
		return f.volumeErr
	}
	f.volume -= step
	return nil
}
func (f *fakeActions) BrightnessAvailable() bool     { return f.brightOK }
func (f *fakeActions) BrightnessUp(step int) error   { return f.brightErr }
func (f *fakeActions) BrightnessDown(step int) error { return f.brightErr }
func (f *fakeActions) Shutdown() error               { f.shutdowns++; return nil }
func (f *fakeActions) Restart() error                { f.restarts++; return nil }
func (f *fakeActions) PlayMusic(path string) error {
	f.musicPlayed = append(f.musicPlayed, path)
	return nil
}

func newTestRegistry(t *testing.T, mutate func(*config.Config), fa *fakeActions) *Registry {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Apps = map[string]string{"notepad": "notepad.exe"}
	if mutate != nil {
		mutate(cfg)
	}
	return NewRegistry(cfg, fa, logging.NewTestLogger())
}

func TestOpenKnownApp(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	resp, handled := r.Handle("open notepad")
	if !handled {
		t.Fatalf("expected handled")
	}
	if resp != "Opening notepad." {
		t.Fatalf("resp = %q", resp)
	}
	if len(fa.launched) != 1 || fa.launched[0] != "notepad.exe" {
		t.Fatalf("launched = %v", fa.launched)
	}
}

func TestOpenUnknownAppStillHandled(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	resp, handled := r.Handle("open gimp")
	if !handled {
		t.Fatalf("expected handled even when app missing")
	}
	if resp != "App gimp not found in config." {
		t.Fatalf("resp = %q", resp)
	}
	if len(fa.launched) != 0 {
		t.Fatalf("nothing should launch: %v", fa.launched)
	}
}

func TestSearchUsesExactRemainder(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	resp, handled := r.Handle("search hello world")
	if !handled {
		t.Fatalf("expected handled")
	}
	if resp != "Searching the web for hello world." {
		t.Fatalf("resp = %q", resp)
	}
	if len(fa.urls) != 1 || !strings.Contains(fa.urls[0], "hello+world") {
		t.Fatalf("urls = %v", fa.urls)
	}
}

func TestVolumeUpDown(t *testing.T) {
	fa := &fakeActions{volumeOK: true}
	r := newTestRegistry(t, nil, fa)

	if resp, handled := r.Handle("volume up"); !handled || resp != "Volume increased." {
		t.Fatalf("volume up: handled=%v resp=%q", handled, resp)
	}
	if resp, handled := r.Handle("turn the volume down"); !handled || resp != "Volume decreased." {
		t.Fatalf("volume down: handled=%v resp=%q", handled, resp)
	}
	if fa.volume != 0 {
		t.Fatalf("volume should be back at 0, got %d", fa.volume)
	}
}

func TestVolumeWithoutDirectionFallsThrough(t *testing.T) {
	fa := &fakeActions{volumeOK: true}
	r := newTestRegistry(t, nil, fa)

	if _, handled := r.Handle("volume please"); handled {
		t.Fatalf("bare volume must not be handled")
	}
}

func TestVolumeUnavailableFallsThrough(t *testing.T) {
	fa := &fakeActions{volumeOK: false}
	r := newTestRegistry(t, nil, fa)

	if _, handled := r.Handle("volume up"); handled {
		t.Fatalf("volume rule must not fire without volume control")
	}
}

func TestVolumeErrorIsSpokenAndHandled(t *testing.T) {
	fa := &fakeActions{volumeOK: true, volumeErr: errors.New("mixer busy")}
	r := newTestRegistry(t, nil, fa)

	resp, handled := r.Handle("volume up")
	if !handled {
		t.Fatalf("expected handled")
	}
	if !strings.Contains(resp, "mixer busy") {
		t.Fatalf("resp should carry the error: %q", resp)
	}
}

func TestBrightness(t *testing.T) {
	fa := &fakeActions{brightOK: true}
	r := newTestRegistry(t, nil, fa)

	if resp, _ := r.Handle("brightness up"); resp != "Brightness increased." {
		t.Fatalf("resp = %q", resp)
	}
	if resp, _ := r.Handle("brightness down a bit"); resp != "Brightness decreased." {
		t.Fatalf("resp = %q", resp)
	}

	fa.brightErr = errors.New("no backlight")
	resp, handled := r.Handle("brightness up")
	if !handled || !strings.Contains(resp, "no backlight") {
		t.Fatalf("error path: handled=%v resp=%q", handled, resp)
	}
}

func TestShutdownDisabled(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	for _, text := range []string{"shutdown", "confirm shutdown", "restart now"} {
		resp, handled := r.Handle(text)
		if !handled || resp != "Shutdown and restart are disabled in config." {
			t.Fatalf("%q: handled=%v resp=%q", text, handled, resp)
		}
	}
	if fa.shutdowns+fa.restarts != 0 {
		t.Fatalf("no OS action expected")
	}
}

func TestShutdownConfirmFlow(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, func(cfg *config.Config) {
		cfg.Commands.AllowShutdown = true
	}, fa)

	resp, handled := r.Handle("shutdown")
	if !handled || resp != "Say 'confirm shutdown' or 'confirm restart' to proceed." {
		t.Fatalf("prompt: handled=%v resp=%q", handled, resp)
	}
	if fa.shutdowns != 0 {
		t.Fatalf("prompt must not shut down")
	}

	resp, handled = r.Handle("confirm shutdown")
	if !handled || resp != "Shutting down system..." {
		t.Fatalf("confirm: handled=%v resp=%q", handled, resp)
	}
	if fa.shutdowns != 1 {
		t.Fatalf("expected one shutdown, got %d", fa.shutdowns)
	}

	resp, _ = r.Handle("confirm restart")
	if resp != "Restarting system..." {
		t.Fatalf("restart resp = %q", resp)
	}
	if fa.restarts != 1 {
		t.Fatalf("expected one restart, got %d", fa.restarts)
	}
}

func TestPlayMusic(t *testing.T) {
	music := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(music, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write music: %v", err)
	}

	fa := &fakeActions{}
	r := newTestRegistry(t, func(cfg *config.Config) {
		cfg.Commands.MusicPath = music
	}, fa)

	resp, handled := r.Handle("play music")
	if !handled || resp != "Playing music." {
		t.Fatalf("handled=%v resp=%q", handled, resp)
	}
	if len(fa.musicPlayed) != 1 {
		t.Fatalf("musicPlayed = %v", fa.musicPlayed)
	}
}

func TestPlayMusicWithoutPath(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	resp, handled := r.Handle("play music")
	if !handled || resp != "Music path not configured." {
		t.Fatalf("handled=%v resp=%q", handled, resp)
	}
}

func TestWriteBubbleSortSnippet(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	resp, handled := r.Handle("crux write a python program for bubble sort")
	if !handled {
		t.Fatalf("expected handled")
	}
	if !strings.Contains(resp, "def bubble_sort(arr):") {
		t.Fatalf("resp = %q", resp)
	}

	// unknown snippet keyword is not handled by built-ins
	if _, handled := r.Handle("crux write a haiku"); handled {
		t.Fatalf("unknown snippet must fall through")
	}
}

func TestUnmatchedTextIsNotHandled(t *testing.T) {
	fa := &fakeActions{}
	r := newTestRegistry(t, nil, fa)

	if _, handled := r.Handle("what is the weather like"); handled {
		t.Fatalf("plain question must not be handled by built-ins")
	}
}
