// Package tts turns response text into audible speech. The offline path
// shells out to espeak-ng; the online path synthesizes MP3 through the
// hosted speech API, caches it on disk, and plays it back with beep.
package tts

import (
	"context"
	"strings"
	"sync"
	"time"

	"crux/internal/config"

	openai "github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"
)

type mode int

const (
	modeOffline mode = iota
	modeOnline
)

// Speaker speaks text using the configured mode. An offline engine that
// fails twice in a row (the second attempt after a fresh reinit) is
// abandoned for the life of the speaker; every later Speak goes online.
type Speaker struct {
	cfg    *config.Config
	logger *logrus.Logger
	lang   func() string

	modeMu sync.Mutex
	mode   mode

	// engineMu serializes offline synthesis; espeak owns the audio
	// device while it runs.
	engineMu sync.Mutex
	offline  offlineEngine

	hosted *hostedSynth

	// speakOffline and synthOnline are swappable for tests.
	speakOffline func(text, voice string) error
	synthOnline  func(ctx context.Context, text, voice string) ([]byte, error)
	play         func(path string)
}

// offlineEngine is the subprocess wrapper around espeak.
type offlineEngine interface {
	Say(text, voice string, rate int, volume float64) error
	available() error
}

// New builds a Speaker from configuration. Construction never fails;
// a missing espeak binary downgrades the speaker to online mode right
// away, and missing credentials surface when Speak runs.
func New(cfg *config.Config, client openai.Client, logger *logrus.Logger) *Speaker {
	s := &Speaker{
		cfg:    cfg,
		logger: logger,
		lang:   cfg.Language,
		hosted: newHostedSynth(cfg, client, logger),
	}
	if cfg.TTS.Mode == "online" {
		s.mode = modeOnline
	}
	s.offline = newEspeak()
	if s.mode == modeOffline {
		if err := s.offline.available(); err != nil {
			logger.Warnf("offline TTS unavailable: %v, starting in online mode", err)
			s.mode = modeOnline
		}
	}
	s.speakOffline = func(text, voice string) error {
		return s.offline.Say(text, voice, cfg.TTS.Rate, cfg.TTS.Volume)
	}
	s.synthOnline = s.hosted.Synthesize
	s.play = s.playFile
	return s
}

// Speak voices text. Blank text is a no-op. Offline synthesis blocks
// until espeak exits; online synthesis blocks on the API call but plays
// the audio asynchronously.
func (s *Speaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if s.currentMode() == modeOffline {
		if s.trySpeakOffline(text) {
			return
		}
		s.downgrade()
	}
	s.speakOnline(text)
}

func (s *Speaker) currentMode() mode {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	return s.mode
}

func (s *Speaker) downgrade() {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()
	if s.mode != modeOnline {
		s.logger.Warn("offline TTS failed twice, switching to online synthesis")
		s.mode = modeOnline
	}
}

// trySpeakOffline attempts offline synthesis, reinitializing the engine
// and retrying once on failure. The voice is resolved per call so a
// language switch picks the matching voice.
func (s *Speaker) trySpeakOffline(text string) bool {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	voice := s.offlineVoice()
	err := s.speakOffline(text, voice)
	if err == nil {
		return true
	}
	s.logger.Warnf("offline TTS failed, reinitializing: %v", err)
	s.offline = newEspeak()
	if err := s.speakOffline(text, voice); err != nil {
		s.logger.Errorf("offline TTS failed after reinit: %v", err)
		return false
	}
	return true
}

func (s *Speaker) offlineVoice() string {
	lang := s.lang()
	if v, ok := s.cfg.TTS.Voices[lang]; ok && v != "" {
		return v
	}
	return lang
}

func (s *Speaker) onlineVoice() string {
	if v, ok := s.cfg.TTS.Hosted.LangMap[s.lang()]; ok && v != "" {
		return v
	}
	return s.cfg.TTS.Hosted.Voice
}

// speakOnline synthesizes (or reuses cached) MP3 and starts playback in
// the background. A synthesis failure drops the utterance; the text is
// still visible in the transcript.
func (s *Speaker) speakOnline(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path, ok := s.hosted.cachedPath(s.lang(), text)
	if !ok {
		data, err := s.synthOnline(ctx, text, s.onlineVoice())
		if err != nil {
			s.logger.Errorf("online TTS: %v", err)
			return
		}
		var werr error
		path, werr = s.hosted.store(s.lang(), text, data)
		if werr != nil {
			s.logger.Errorf("cache tts audio: %v", werr)
			return
		}
	}
	go s.play(path)
}

// playFile plays one MP3 under the hosted playback lock so utterances
// never overlap.
func (s *Speaker) playFile(path string) {
	if err := s.hosted.play(path); err != nil {
		s.logger.Errorf("tts playback: %v", err)
	}
}
