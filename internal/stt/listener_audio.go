//go:build audio

package stt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"crux/internal/config"

	"github.com/gordonklaus/portaudio"
	vad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"
)

// micListener captures microphone frames, segments them with webrtc VAD,
// and hands recognized utterances to onText. One background loop at most;
// Start and Stop are safe to call repeatedly.
type micListener struct {
	cfg     *config.Config
	backend *Backend
	logger  *logrus.Logger
	onText  func(string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewListener builds the microphone listener. The process must be built
// with -tags audio for this to capture anything.
func NewListener(cfg *config.Config, backend *Backend, logger *logrus.Logger, onText func(string)) Listener {
	return &micListener{cfg: cfg, backend: backend, logger: logger, onText: onText}
}

func (l *micListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	if err := validateAudio(l.cfg); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.running = true
	l.cancel = cancel
	l.done = done
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if err := l.capture(ctx); err != nil && ctx.Err() == nil {
				l.logger.Errorf("mic capture: %v (retrying)", err)
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}()
	return nil
}

func (l *micListener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		l.logger.Warn("mic loop did not stop in time")
	}
}

func validateAudio(cfg *config.Config) error {
	if cfg.Audio.Channels != 1 {
		return fmt.Errorf("only mono input supported; set audio.channels = 1")
	}
	if cfg.Audio.FrameMS != 10 && cfg.Audio.FrameMS != 20 && cfg.Audio.FrameMS != 30 {
		return fmt.Errorf("audio.frame_ms must be 10, 20, or 30 (got %d)", cfg.Audio.FrameMS)
	}
	switch cfg.Audio.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("sample_rate must be 8k/16k/32k/48k for webrtc VAD (got %d)", cfg.Audio.SampleRate)
	}
	return nil
}

// capture runs one portaudio session until ctx is canceled or the stream
// fails. Stream errors bubble up so Start's loop can reopen the device.
func (l *micListener) capture(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := selectDevice(l.cfg.Audio.DeviceName, l.cfg.Audio.DeviceIndex)
	if err != nil {
		return err
	}

	v, err := vad.New()
	if err != nil {
		return fmt.Errorf("vad: %w", err)
	}
	if err := v.SetMode(l.cfg.STT.Aggressiveness); err != nil {
		return fmt.Errorf("vad mode: %w", err)
	}

	rate := l.cfg.Audio.SampleRate
	frameSamples := rate * l.cfg.Audio.FrameMS / 1000
	if ok := vad.ValidRateAndFrameLength(rate, frameSamples); !ok {
		return fmt.Errorf("invalid frame_ms %d for sample_rate %d", l.cfg.Audio.FrameMS, rate)
	}

	buf := make([]int16, frameSamples)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: l.cfg.Audio.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: frameSamples,
	}, &buf)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	segments := make(chan []int16, 4)
	go l.recognizeWorker(ctx, segments)

	gate := newEnergyGate(l.cfg.STT.EnergyThreshold, l.cfg.STT.DynamicEnergy)
	frameBytes := make([]byte, frameSamples*2)

	var (
		chunk         []int16
		inSpeech      bool
		lastVoice     time.Time
		speechBegan   time.Time
		lastVoiceSeen = time.Now()
		silenceDur    = time.Duration(l.cfg.STT.SilenceMS) * time.Millisecond
		phraseLimit   = time.Duration(l.cfg.STT.PhraseLimitMS) * time.Millisecond
		listenTimeout = time.Duration(l.cfg.STT.ListenTimeoutMS) * time.Millisecond
	)

	l.logger.Infof("listening on mic: %s @ %d Hz", dev.Name, rate)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				l.logger.Warn("input overflow")
				continue
			}
			return fmt.Errorf("stream read: %w", err)
		}
		for i, s := range buf {
			binary.LittleEndian.PutUint16(frameBytes[i*2:], uint16(s))
		}
		voice, err := v.Process(rate, frameBytes)
		if err != nil {
			return fmt.Errorf("vad process: %w", err)
		}
		if voice && !gate.pass(buf) {
			voice = false
		}

		if voice {
			lastVoiceSeen = time.Now()
			if !inSpeech {
				inSpeech = true
				speechBegan = time.Now()
				chunk = chunk[:0]
			}
			chunk = append(chunk, buf...)
			lastVoice = time.Now()
			if phraseLimit > 0 && time.Since(speechBegan) >= phraseLimit {
				l.finalize(&chunk, &inSpeech, segments)
			}
		} else if inSpeech {
			if time.Since(lastVoice) >= silenceDur && len(chunk) > 0 {
				l.finalize(&chunk, &inSpeech, segments)
			}
		} else if listenTimeout > 0 && time.Since(lastVoiceSeen) >= listenTimeout {
			// Long quiet stretch: re-learn the ambient noise floor.
			gate.recalibrate()
			lastVoiceSeen = time.Now()
		}
	}
}

func (l *micListener) finalize(chunk *[]int16, inSpeech *bool, segments chan<- []int16) {
	cpy := make([]int16, len(*chunk))
	copy(cpy, *chunk)
	select {
	case segments <- cpy:
	default:
		l.logger.Warn("segment queue full, dropping segment")
	}
	*inSpeech = false
	*chunk = (*chunk)[:0]
}

func (l *micListener) recognizeWorker(ctx context.Context, segs <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case pcm := <-segs:
			if len(pcm) == 0 {
				continue
			}
			samples := make([]float32, len(pcm))
			for i, s := range pcm {
				samples[i] = float32(s) / 32768.0
			}
			if l.cfg.Audio.SampleRate != segmentSampleRate {
				samples = resampleLinear(samples, l.cfg.Audio.SampleRate, segmentSampleRate)
			}
			text := l.backend.Recognize(ctx, samples)
			if text == "" {
				continue
			}
			l.onText(text)
		}
	}
}

// energyGate filters VAD false positives on noisy devices. With dynamic
// mode the threshold tracks a slow average of ambient RMS.
type energyGate struct {
	threshold float64
	dynamic   bool
	ambient   float64
	primed    bool
}

func newEnergyGate(threshold float64, dynamic bool) *energyGate {
	return &energyGate{threshold: threshold, dynamic: dynamic}
}

func (g *energyGate) recalibrate() {
	if g.dynamic {
		g.primed = false
	}
}

func (g *energyGate) pass(frame []int16) bool {
	if g.threshold <= 0 {
		return true
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768.0
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	if g.dynamic {
		if !g.primed {
			g.ambient = rms
			g.primed = true
		} else {
			g.ambient = g.ambient*0.95 + rms*0.05
		}
		return rms >= g.ambient+g.threshold
	}
	return rms >= g.threshold
}

func selectDevice(preferred string, index int) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if index >= 0 && index < len(devs) && devs[index].MaxInputChannels > 0 {
		return devs[index], nil
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}
