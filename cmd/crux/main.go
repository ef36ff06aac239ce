package main

import (
	"fmt"
	"os"

	"crux/internal/control"
	"crux/internal/daemon"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "crux",
		Short: "Crux — local voice assistant daemon",
		Long: `Crux listens on your mic, waits for a wake word ("crux"), transcribes speech
(whisper.cpp, vosk, or the hosted API), routes built-in commands (open apps,
web search, volume, brightness, music, power), falls back to GPT for open
questions, and speaks the answer back (espeak-ng or hosted TTS).

Key commands:
  start|stop|restart        Daemon lifecycle
  status [--json]           Uptime + recent conversation
  say "text"                Send typed text to the assistant
  listen on|off             Toggle microphone capture
  mic list|set              Select microphone
  doctor|setup              Check deps / download default model
  models list|download|set  Manage whisper.cpp models
  service install|uninstall|status   systemd user unit helper
  health|tail-log|transcribe         Liveness, log tail, file transcription

Notable flags/env:
  --metrics-addr <addr>     Enable /metrics (Prometheus text)
  --no-gpt                  Disable the GPT fallback
  --language <en|ta>        Language preference for this run
  Env overrides: CRUX_WAKE_WORD, CRUX_LANGUAGE, CRUX_STT_MODE,
                 CRUX_TTS_MODE, CRUX_GPT_ENABLED, CRUX_ALLOW_SHUTDOWN,
                 CRUX_METRICS_ADDR, CRUX_LOG_LEVEL/FORMAT`,
		Example: `  crux start --metrics-addr 127.0.0.1:9343
  crux say "open notepad"
  crux listen off
  crux models download ggml-base.bin
  crux transcribe recording.wav --send
  crux service install --env OPENAI_API_KEY=sk-...`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("Crux v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/crux/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(daemon.NewStartCmd(cfgPath))
	root.AddCommand(daemon.NewStopCmd(cfgPath))
	root.AddCommand(daemon.NewRestartCmd(cfgPath))
	root.AddCommand(control.NewStatusCmd(cfgPath))
	root.AddCommand(control.NewHealthCmd(cfgPath))
	root.AddCommand(control.NewSayCmd(cfgPath))
	root.AddCommand(control.NewListenCmd(cfgPath))
	root.AddCommand(control.NewTranscriptsCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewServiceCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))

	// Hidden internal serve command used by start.
	root.AddCommand(daemon.NewServeCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sCrux%s — local voice assistant daemon %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sListens on the mic, routes commands, asks GPT, and talks back.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  crux [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  start|stop|restart          daemon lifecycle")
		writeln("  status [--json]             uptime + recent conversation")
		writeln("  say \"text\"                send typed text to the assistant")
		writeln("  listen on|off               toggle microphone capture")
		writeln("  mic list|set                select input device")
		writeln("  doctor                      check deps/model/espeak/portaudio")
		writeln("  setup                       download default whisper model")
		writeln("  models list|download|set    manage whisper.cpp models")
		writeln("  service install|uninstall|status manage user systemd unit")
		writeln("  health                      control-socket liveness ping")
		writeln("  tail-log                    show last log lines")
		writeln("  transcribe <wav> [--send]   transcribe a file, optionally route it")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --metrics-addr <addr>   enable /metrics (Prometheus)")
		writeln("  --no-gpt                disable the GPT fallback")
		writeln("  --language <en|ta>      language preference for this run")
		writeln("  -c, --config <path>     config file (default ~/.config/crux/config.toml)")
		writeln("  Env: CRUX_WAKE_WORD=hey, CRUX_LANGUAGE=ta, CRUX_STT_MODE=online,")
		writeln("       CRUX_TTS_MODE=online, CRUX_GPT_ENABLED=0, CRUX_ALLOW_SHUTDOWN=1,")
		writeln("       CRUX_METRICS_ADDR=host:port, CRUX_LOG_LEVEL=debug, CRUX_LOG_FORMAT=json")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  crux start --metrics-addr 127.0.0.1:9343")
		writeln("  crux say \"search weather in chennai\"")
		writeln("  crux mic list")
		writeln("  crux models download ggml-base.bin")
		writeln("  crux transcribe note.wav --send")
		writeln("  crux service install --env OPENAI_API_KEY=sk-...")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
