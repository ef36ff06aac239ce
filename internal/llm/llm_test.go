package llm

import (
	"testing"

	"crux/internal/config"
	"crux/internal/logging"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	cfg, _ := config.Default()
	cfg.GPT.Enabled = false
	if c := New(cfg, logging.NewTestLogger()); c != nil {
		t.Fatalf("expected nil client when disabled")
	}
}

func TestNewReturnsNilWithoutCredential(t *testing.T) {
	cfg, _ := config.Default()
	cfg.GPT.Enabled = true
	cfg.GPT.APIKey = ""
	cfg.GPT.EnvAPIKey = "CRUX_TEST_MISSING_KEY"
	t.Setenv("CRUX_TEST_MISSING_KEY", "")
	if c := New(cfg, logging.NewTestLogger()); c != nil {
		t.Fatalf("expected nil client without credential")
	}
}

func TestResolveAPIKeyPrefersConfig(t *testing.T) {
	cfg, _ := config.Default()
	cfg.GPT.APIKey = "from-config"
	cfg.GPT.EnvAPIKey = "CRUX_TEST_KEY"
	t.Setenv("CRUX_TEST_KEY", "from-env")
	if got := ResolveAPIKey(cfg); got != "from-config" {
		t.Fatalf("ResolveAPIKey = %q", got)
	}

	cfg.GPT.APIKey = ""
	if got := ResolveAPIKey(cfg); got != "from-env" {
		t.Fatalf("ResolveAPIKey = %q", got)
	}
}
