//go:build !audio

package stt

import (
	"errors"

	"crux/internal/config"

	"github.com/sirupsen/logrus"
)

type stubListener struct{}

// NewListener returns a listener whose Start always fails; microphone
// capture requires building with -tags audio.
func NewListener(cfg *config.Config, backend *Backend, logger *logrus.Logger, onText func(string)) Listener {
	return stubListener{}
}

func (stubListener) Start() error {
	return errors.New("microphone support not compiled in; build with -tags audio")
}

func (stubListener) Stop() {}
