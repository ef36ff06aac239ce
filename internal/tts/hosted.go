package tts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crux/internal/config"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	openai "github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"
)

// hostedSynth synthesizes speech through the hosted API and keeps the
// MP3s in an on-disk cache so repeated phrases cost one API call.
type hostedSynth struct {
	cfg    *config.Config
	client openai.Client
	logger *logrus.Logger

	// playMu serializes playback; two utterances never overlap.
	playMu sync.Mutex

	speakerOnce sync.Once
	speakerErr  error
	outRate     beep.SampleRate
}

func newHostedSynth(cfg *config.Config, client openai.Client, logger *logrus.Logger) *hostedSynth {
	return &hostedSynth{cfg: cfg, client: client, logger: logger}
}

// cacheKey is stable across runs: same language and text, same file.
func cacheKey(lang, text string) string {
	sum := sha1.Sum([]byte(lang + "|" + text))
	return hex.EncodeToString(sum[:]) + ".mp3"
}

func (h *hostedSynth) cachedPath(lang, text string) (string, bool) {
	dir := h.cfg.Paths.TTSCacheDir
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, cacheKey(lang, text))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (h *hostedSynth) store(lang, text string, data []byte) (string, error) {
	dir := h.cfg.Paths.TTSCacheDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, cacheKey(lang, text))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Synthesize requests one MP3 from the speech API.
func (h *hostedSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	model := h.cfg.TTS.Hosted.Model
	if model == "" {
		model = "tts-1"
	}
	res, err := h.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	return data, nil
}

// play decodes and plays one MP3 file, blocking until it finishes. The
// playback lock keeps concurrent Speak calls in order.
func (h *hostedSynth) play(path string) error {
	h.playMu.Lock()
	defer h.playMu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	// The device is initialized once with the first file's rate; later
	// files with a different rate get resampled to it.
	h.speakerOnce.Do(func() {
		h.outRate = format.SampleRate
		h.speakerErr = speaker.Init(h.outRate, h.outRate.N(time.Second/10))
	})
	if h.speakerErr != nil {
		return fmt.Errorf("audio output init: %w", h.speakerErr)
	}

	var stream beep.Streamer = streamer
	if format.SampleRate != h.outRate {
		stream = beep.Resample(4, format.SampleRate, h.outRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
