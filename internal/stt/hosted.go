package stt

import (
	"context"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"
)

// hostedLocales maps the language preference to the hosted API's locale
// tag. Unknown preferences default to the primary language.
var hostedLocales = map[string]string{
	"en": "en",
	"ta": "ta",
}

// Hosted transcribes audio segments through the hosted speech API.
type Hosted struct {
	client openai.Client
	logger *logrus.Logger
}

func NewHosted(client openai.Client, logger *logrus.Logger) *Hosted {
	return &Hosted{client: client, logger: logger}
}

func (h *Hosted) Name() string { return "hosted" }

// Transcribe uploads one segment as WAV and returns the transcription.
func (h *Hosted) Transcribe(ctx context.Context, samples []float32, lang string) (string, error) {
	locale, ok := hostedLocales[lang]
	if !ok {
		locale = hostedLocales["en"]
	}

	tmp, err := os.CreateTemp("", "crux-stt-*.wav")
	if err != nil {
		return "", fmt.Errorf("temp wav: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := encodeWAV(tmp, samples, segmentSampleRate); err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", err
	}

	resp, err := h.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     tmp,
		Model:    openai.AudioModelWhisper1,
		Language: openai.String(locale),
	})
	if err != nil {
		return "", fmt.Errorf("hosted transcription: %w", err)
	}
	return resp.Text, nil
}

func (h *Hosted) Close() error { return nil }
