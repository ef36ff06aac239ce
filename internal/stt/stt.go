// Package stt converts microphone audio into text. Exactly one
// recognition strategy is selected at construction: an offline engine
// (whisper or vosk) or the hosted transcription API. The choice never
// changes mid-run; an offline engine that fails to load falls back to the
// hosted API for the life of the backend.
package stt

import (
	"context"
	"strings"

	"crux/internal/config"

	openai "github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"
)

// Transcriber converts one audio segment (mono float32 @ 16 kHz) to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, lang string) (string, error)
	Name() string
	Close() error
}

// Listener produces recognized text from the microphone while running.
type Listener interface {
	// Start is idempotent; it spawns at most one background listening loop.
	Start() error
	// Stop clears the listening flag and waits a bounded time for the
	// loop to exit.
	Stop()
}

type backendKind int

const (
	kindOffline backendKind = iota
	kindHosted
)

// Backend is the recognition strategy decided once at construction.
type Backend struct {
	kind   backendKind
	engine Transcriber
	logger *logrus.Logger
	lang   func() string
}

// NewBackend selects the strategy from configuration. When the configured
// offline engine cannot be loaded the hosted API is used instead; the
// downgrade is logged once and permanent for this instance.
func NewBackend(cfg *config.Config, client openai.Client, logger *logrus.Logger) *Backend {
	b := &Backend{logger: logger, lang: cfg.Language}
	if cfg.STT.Mode == "offline" {
		engine, err := newOfflineEngine(cfg)
		if err == nil {
			b.kind = kindOffline
			b.engine = engine
			logger.Infof("speech recognition: offline engine %s", engine.Name())
			return b
		}
		logger.Warnf("offline STT engine unavailable, using hosted recognition: %v", err)
	}
	b.kind = kindHosted
	b.engine = NewHosted(client, logger)
	logger.Infof("speech recognition: hosted API")
	return b
}

// EngineName reports the active strategy, for status and diagnostics.
func (b *Backend) EngineName() string {
	return b.engine.Name()
}

// Recognize returns the best-effort transcription of one segment. An
// empty string means no speech was understood or the call failed; errors
// are logged, never propagated.
func (b *Backend) Recognize(ctx context.Context, samples []float32) string {
	text, err := b.engine.Transcribe(ctx, samples, b.lang())
	if err != nil {
		b.logger.Errorf("recognition failed: %v", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// Close releases engine resources.
func (b *Backend) Close() {
	if err := b.engine.Close(); err != nil {
		b.logger.Warnf("close %s: %v", b.engine.Name(), err)
	}
}

// newOfflineEngine loads the configured offline engine. The vosk model
// path follows the language preference.
func newOfflineEngine(cfg *config.Config) (Transcriber, error) {
	switch cfg.STT.PreferredEngine {
	case "vosk":
		path := cfg.STT.Vosk.ModelPathEN
		if cfg.Language() == "ta" {
			path = cfg.STT.Vosk.ModelPathTA
		}
		return newVosk(path)
	default:
		return newWhisper(cfg.STT.Whisper.ModelPath)
	}
}
