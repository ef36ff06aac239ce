//go:build !vosk

package stt

import "errors"

func newVosk(string) (Transcriber, error) {
	return nil, errors.New("vosk engine not compiled in; build with -tags vosk")
}
