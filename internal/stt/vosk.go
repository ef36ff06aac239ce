//go:build vosk

package stt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

const voskSampleRate = 16000.0

// voskEngine wraps a vosk model plus one reusable recognizer.
type voskEngine struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

type voskResult struct {
	Text string `json:"text"`
}

func newVosk(modelPath string) (Transcriber, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk model path: %w", err)
	}
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}
	rec, err := vosk.NewRecognizer(model, voskSampleRate)
	if err != nil {
		model.Free()
		return nil, err
	}
	return &voskEngine{model: model, recognizer: rec}, nil
}

func (v *voskEngine) Name() string { return "vosk" }

// Transcribe feeds PCM16 to the recognizer; the language is baked into
// the loaded model, so lang is ignored here.
func (v *voskEngine) Transcribe(_ context.Context, samples []float32, _ string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pcm16 := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(pcm16[i*2:], uint16(int16(s*math.MaxInt16)))
	}

	v.recognizer.AcceptWaveform(pcm16)
	raw := v.recognizer.FinalResult()
	v.recognizer.Reset()

	var result voskResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", fmt.Errorf("parse vosk result: %w", err)
	}
	return result.Text, nil
}

func (v *voskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}
