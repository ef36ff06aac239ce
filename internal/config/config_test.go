package config

import (
	"os"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv("CRUX_WAKE_WORD", "jarvis")
	t.Setenv("CRUX_GPT_ENABLED", "1")
	t.Setenv("CRUX_METRICS_ADDR", "1.2.3.4:9999")
	t.Setenv("CRUX_LOG_LEVEL", "debug")
	t.Setenv("CRUX_LOG_FORMAT", "json")

	applyEnvOverrides(cfg)

	if cfg.App.WakeWord != "jarvis" {
		t.Fatalf("wake word override failed: %q", cfg.App.WakeWord)
	}
	if !cfg.GPT.Enabled {
		t.Fatalf("gpt should be enabled via env")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "1.2.3.4:9999" {
		t.Fatalf("metrics override failed: %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
}

func TestFirstRunLoadAppliesEnvOverrides(t *testing.T) {
	path := t.TempDir() + "/config.toml"
	t.Setenv("CRUX_WAKE_WORD", "jarvis")
	t.Setenv("CRUX_METRICS_ADDR", "127.0.0.1:9109")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.WakeWord != "jarvis" {
		t.Fatalf("wake word override dropped on first run: %q", cfg.App.WakeWord)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9109" {
		t.Fatalf("metrics override dropped on first run: %+v", cfg.Metrics)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected template written on first run: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = path
	cfg.App.WakeWord = "nova"
	cfg.Apps = map[string]string{"Notepad": "notepad.exe"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.App.WakeWord != "nova" {
		t.Fatalf("expected wake word to persist, got %q", loaded.App.WakeWord)
	}
	if _, ok := loaded.Apps["notepad"]; !ok {
		t.Fatalf("expected app key lowercased on load: %+v", loaded.Apps)
	}

	// cleanup to avoid residue
	_ = os.Remove(path)
}

func TestLanguageFallsBackToPrimary(t *testing.T) {
	cfg, _ := Default()
	for in, want := range map[string]string{
		"en": "en", "ta": "ta", "TA": "ta", "": "en", "fr": "en",
	} {
		cfg.App.LanguagePreference = in
		if got := cfg.Language(); got != want {
			t.Fatalf("Language(%q)=%q want %q", in, got, want)
		}
	}
}
