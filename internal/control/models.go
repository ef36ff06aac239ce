package control

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"crux/internal/config"

	"github.com/spf13/cobra"
)

// simple registry of known ggml whisper models.
var modelRegistry = map[string]string{
	"ggml-tiny.bin":        "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	"ggml-base.bin":        "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	"ggml-small-q5_1.bin":  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small-q5_1.bin",
	"ggml-medium-q5_1.bin": "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium-q5_1.bin",
}

func modelDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "models")
}

// NewModelsCmd wires up the models subcommands (list/download/set).
func NewModelsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List/download/set whisper models",
	}
	cmd.AddCommand(newModelsListCmd(cfgPath))
	cmd.AddCommand(newModelsDownloadCmd(cfgPath))
	cmd.AddCommand(newModelsSetCmd(cfgPath))
	return cmd
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and those present locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			local := map[string]bool{}
			entries, _ := os.ReadDir(modelDir(cfg))
			for _, e := range entries {
				if !e.IsDir() {
					local[e.Name()] = true
				}
			}
			names := make([]string, 0, len(modelRegistry))
			for n := range modelRegistry {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				avail := ""
				if local[n] {
					avail = "(downloaded)"
				}
				fmt.Printf("- %s %s\n", n, avail)
			}
			return nil
		},
	}
}

func newModelsDownloadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a model from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			name := args[0]
			url, ok := modelRegistry[name]
			if !ok {
				return fmt.Errorf("unknown model %q; run models list", name)
			}
			dest := filepath.Join(modelDir(cfg), name)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			fmt.Printf("downloading %s -> %s\n", name, dest)
			return downloadFile(url, dest)
		},
	}
}

func downloadFile(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model-name-or-path>",
		Short: "Set stt.whisper.model_path in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			val := args[0]
			// short names resolve inside the state model dir
			if !strings.Contains(val, "/") {
				val = filepath.Join(modelDir(cfg), val)
			}
			cfg.STT.Whisper.ModelPath = val
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			fmt.Printf("model set to %s\n", val)
			return nil
		},
	}
}

// NewSetupCmd downloads the default model if missing.
func NewSetupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download default whisper model if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			modelPath := os.ExpandEnv(cfg.STT.Whisper.ModelPath)
			if _, err := os.Stat(modelPath); err == nil {
				fmt.Println("model already present at", modelPath)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(modelPath), 0o755); err != nil {
				return err
			}
			fmt.Printf("downloading model to %s\n", modelPath)
			if err := downloadFile(modelRegistry["ggml-base.bin"], modelPath); err != nil {
				return err
			}
			fmt.Println("model download complete")
			return nil
		},
	}
}
