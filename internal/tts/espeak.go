package tts

import (
	"fmt"
	"os/exec"
	"strconv"
)

// espeak wraps the espeak-ng (or legacy espeak) binary. Each Say spawns
// one subprocess; the caller holds the engine lock.
type espeak struct {
	path string
	err  error
}

func newEspeak() offlineEngine {
	for _, name := range []string{"espeak-ng", "espeak"} {
		if p, err := exec.LookPath(name); err == nil {
			return &espeak{path: p}
		}
	}
	return &espeak{err: fmt.Errorf("espeak-ng not found in PATH")}
}

// available reports the PATH probe result from construction.
func (e *espeak) available() error { return e.err }

func (e *espeak) Say(text, voice string, rate int, volume float64) error {
	if e.err != nil {
		return e.err
	}
	if rate <= 0 {
		rate = 175
	}
	amp := int(volume * 100)
	if amp <= 0 {
		amp = 100
	} else if amp > 200 {
		amp = 200
	}
	args := []string{"-s", strconv.Itoa(rate), "-a", strconv.Itoa(amp)}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, text)
	cmd := exec.Command(e.path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("espeak: %w: %s", err, out)
	}
	return nil
}
