// Package doctor runs environment checks for the voice pipeline.
package doctor

import (
	"os"
	"os/exec"
	"strings"

	"crux/internal/config"
	"crux/internal/llm"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkSTTModel(cfg),
		checkEspeak(),
		checkGPTCredential(cfg),
		checkPortAudioPkgConfig(),
	}
	results = append(results, checkPortAudio())
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

// checkSTTModel verifies the model the configured offline engine needs.
// Online recognition needs no local model.
func checkSTTModel(cfg *config.Config) Result {
	label := "stt model"
	if cfg.STT.Mode != "offline" {
		return Result{Name: label, Pass: true, Detail: "online mode, no local model needed"}
	}
	switch cfg.STT.PreferredEngine {
	case "vosk":
		path := cfg.STT.Vosk.ModelPathEN
		if cfg.Language() == "ta" {
			path = cfg.STT.Vosk.ModelPathTA
		}
		return checkFile(label, path)
	default:
		return checkFile(label, cfg.STT.Whisper.ModelPath)
	}
}

func checkEspeak() Result {
	label := "espeak"
	for _, name := range []string{"espeak-ng", "espeak"} {
		if resolved, err := exec.LookPath(name); err == nil {
			return Result{Name: label, Pass: true, Detail: resolved}
		}
	}
	return Result{Name: label, Pass: false, Detail: "espeak-ng not found (offline TTS will fall back to online)"}
}

func checkGPTCredential(cfg *config.Config) Result {
	label := "gpt credential"
	if !cfg.GPT.Enabled {
		return Result{Name: label, Pass: true, Detail: "gpt disabled"}
	}
	if llm.ResolveAPIKey(cfg) == "" {
		return Result{Name: label, Pass: false, Detail: "gpt enabled but no API key in config or " + cfg.GPT.EnvAPIKey}
	}
	return Result{Name: label, Pass: true, Detail: "key present"}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: "portaudio-2.0 not found (install the portaudio dev package)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio", Pass: true, Detail: "found via pkg-config"}
}
