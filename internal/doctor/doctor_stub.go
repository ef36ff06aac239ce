//go:build !audio

package doctor

func checkPortAudio() Result {
	return Result{Name: "portaudio-runtime", Pass: true, Detail: "skipped (build with -tags audio to test capture)"}
}
