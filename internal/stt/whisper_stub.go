//go:build !whisper

package stt

import "errors"

func newWhisper(string) (Transcriber, error) {
	return nil, errors.New("whisper engine not compiled in; build with -tags whisper")
}
