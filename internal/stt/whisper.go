//go:build whisper

package stt

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// whisperEngine wraps a whisper.cpp model. A mutex serializes contexts;
// the binding is not safe for concurrent Process calls on one model.
type whisperEngine struct {
	mu    sync.Mutex
	model whisper.Model
}

func newWhisper(modelPath string) (Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper model path not set")
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, err
	}
	return &whisperEngine{model: model}, nil
}

func (w *whisperEngine) Name() string { return "whisper" }

func (w *whisperEngine) Transcribe(ctx context.Context, samples []float32, lang string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", err
	}
	wctx.SetTranslate(false)
	wctx.SetThreads(uint(runtime.NumCPU()))
	if lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			return "", err
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		b.WriteString(seg.Text)
		if !strings.HasSuffix(seg.Text, " ") {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (w *whisperEngine) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
