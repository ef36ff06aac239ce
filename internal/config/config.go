package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultWakeWord      = "crux"
	DefaultSystemPrompt  = "You are Crux, a helpful assistant."
	defaultVolumeStep    = 10
	defaultStatusTail    = 10
	defaultStateDirLinux = ".local/state/crux"
	defaultConfigDir     = ".config/crux"
)

// Config holds user configuration loaded from TOML. It is loaded once at
// startup and read-only afterwards; no component mutates it at runtime.
type Config struct {
	App struct {
		WakeWord           string `toml:"wake_word"`
		LanguagePreference string `toml:"language_preference"` // en, ta
	} `toml:"app"`

	Audio struct {
		DeviceName  string `toml:"device_name"`
		DeviceIndex int    `toml:"device_index"`
		SampleRate  int    `toml:"sample_rate"`
		Channels    int    `toml:"channels"`
		FrameMS     int    `toml:"frame_ms"`
	} `toml:"audio"`

	STT struct {
		Mode            string  `toml:"mode"`                     // offline, online
		PreferredEngine string  `toml:"preferred_offline_engine"` // whisper, vosk
		EnergyThreshold float64 `toml:"energy_threshold"`
		DynamicEnergy   bool    `toml:"dynamic_energy"`
		ListenTimeoutMS int     `toml:"listen_timeout_ms"`
		PhraseLimitMS   int     `toml:"phrase_limit_ms"`
		SilenceMS       int     `toml:"silence_ms"`
		Aggressiveness  int     `toml:"aggressiveness"`

		Whisper struct {
			ModelPath string `toml:"model_path"`
		} `toml:"whisper"`

		Vosk struct {
			ModelPathEN string `toml:"model_path_en"`
			ModelPathTA string `toml:"model_path_ta"`
		} `toml:"vosk"`
	} `toml:"stt"`

	TTS struct {
		Mode   string            `toml:"mode"` // offline, online
		Rate   int               `toml:"rate"`
		Volume float64           `toml:"volume"`
		Voices map[string]string `toml:"voices"` // language -> espeak voice

		Hosted struct {
			Model   string            `toml:"model"`
			Voice   string            `toml:"voice"`
			LangMap map[string]string `toml:"lang_map"`
		} `toml:"hosted"`
	} `toml:"tts"`

	GPT struct {
		Enabled      bool    `toml:"enabled"`
		APIKey       string  `toml:"api_key"`
		EnvAPIKey    string  `toml:"env_api_key"`
		Model        string  `toml:"model"`
		MaxTokens    int     `toml:"max_tokens"`
		Temperature  float64 `toml:"temperature"`
		SystemPrompt string  `toml:"system_prompt"`
	} `toml:"gpt"`

	// Apps maps spoken application names to launch command lines.
	// Keys are normalized to lowercase on load.
	Apps map[string]string `toml:"apps"`

	Commands struct {
		AllowShutdown  bool   `toml:"allow_shutdown"`
		MusicPath      string `toml:"music_path"`
		VolumeStep     int    `toml:"volume_step"`
		BrightnessStep int    `toml:"brightness_step"`
	} `toml:"commands"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir    string `toml:"state_dir"`
		LogPath     string `toml:"log_path"`
		AuditPath   string `toml:"audit_path"`
		TTSCacheDir string `toml:"tts_cache_dir"`
		SocketPath  string `toml:"socket_path"`
		PidPath     string `toml:"pid_path"`
		ConfigPath  string `toml:"-"`
	} `toml:"paths"`

	UI struct {
		StatusTail int `toml:"status_tail"`
	} `toml:"ui"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/crux for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "crux")
	}

	cfg := &Config{}

	cfg.App.WakeWord = DefaultWakeWord
	cfg.App.LanguagePreference = "en"

	cfg.Audio.DeviceIndex = -1
	cfg.Audio.SampleRate = 16000
	cfg.Audio.Channels = 1
	cfg.Audio.FrameMS = 20

	cfg.STT.Mode = "offline"
	cfg.STT.PreferredEngine = "whisper"
	cfg.STT.EnergyThreshold = 0.01
	cfg.STT.DynamicEnergy = true
	cfg.STT.ListenTimeoutMS = 3000
	cfg.STT.PhraseLimitMS = 8000
	cfg.STT.SilenceMS = 900
	cfg.STT.Aggressiveness = 2
	cfg.STT.Whisper.ModelPath = filepath.Join(stateDir, "models", "ggml-base.bin")
	cfg.STT.Vosk.ModelPathEN = filepath.Join(stateDir, "models", "vosk-en")
	cfg.STT.Vosk.ModelPathTA = filepath.Join(stateDir, "models", "vosk-ta")

	cfg.TTS.Mode = "offline"
	cfg.TTS.Rate = 175
	cfg.TTS.Volume = 1.0
	cfg.TTS.Voices = map[string]string{"en": "en", "ta": "ta"}
	cfg.TTS.Hosted.Model = "tts-1"
	cfg.TTS.Hosted.Voice = "alloy"
	cfg.TTS.Hosted.LangMap = map[string]string{"en": "en", "ta": "ta"}

	cfg.GPT.Enabled = false
	cfg.GPT.EnvAPIKey = "OPENAI_API_KEY"
	cfg.GPT.Model = "gpt-4o-mini"
	cfg.GPT.MaxTokens = 500
	cfg.GPT.Temperature = 0.7
	cfg.GPT.SystemPrompt = DefaultSystemPrompt

	cfg.Apps = map[string]string{}

	cfg.Commands.AllowShutdown = false
	cfg.Commands.VolumeStep = defaultVolumeStep
	cfg.Commands.BrightnessStep = 10

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "crux.log")
	cfg.Paths.AuditPath = filepath.Join(stateDir, "conversation.jsonl")
	cfg.Paths.TTSCacheDir = filepath.Join(stateDir, "tts_cache")
	cfg.Paths.SocketPath = filepath.Join(stateDir, "crux.sock")
	cfg.Paths.PidPath = filepath.Join(stateDir, "crux.pid")

	cfg.UI.StatusTail = defaultStatusTail

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9343"

	return cfg, nil
}

// Load loads config from file, applying defaults. A template config is
// written on first run.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			normalize(cfg)
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	normalize(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Language returns the normalized language preference; anything other than
// a known secondary language falls back to "en".
func (c *Config) Language() string {
	switch strings.ToLower(strings.TrimSpace(c.App.LanguagePreference)) {
	case "ta":
		return "ta"
	default:
		return "en"
	}
}

// normalize enforces the command-table invariant: app keys are matched
// case-insensitively, so store them lowercased.
func normalize(cfg *Config) {
	if len(cfg.Apps) == 0 {
		return
	}
	apps := make(map[string]string, len(cfg.Apps))
	for k, v := range cfg.Apps {
		apps[strings.ToLower(strings.TrimSpace(k))] = v
	}
	cfg.Apps = apps
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{
		cfg.Paths.StateDir,
		filepath.Dir(cfg.Paths.LogPath),
		filepath.Dir(cfg.Paths.AuditPath),
		cfg.Paths.TTSCacheDir,
	} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRUX_WAKE_WORD"); v != "" {
		cfg.App.WakeWord = v
	}
	if v := os.Getenv("CRUX_LANGUAGE"); v != "" {
		cfg.App.LanguagePreference = v
	}
	if v := os.Getenv("CRUX_STT_MODE"); v != "" {
		cfg.STT.Mode = v
	}
	if v := os.Getenv("CRUX_TTS_MODE"); v != "" {
		cfg.TTS.Mode = v
	}
	if v := os.Getenv("CRUX_GPT_ENABLED"); v != "" {
		cfg.GPT.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("CRUX_ALLOW_SHUTDOWN"); v != "" {
		cfg.Commands.AllowShutdown = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("CRUX_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("CRUX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRUX_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
