// Package daemon provides start/stop/restart lifecycle commands around
// the foreground serve loop.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"crux/internal/config"
	"crux/internal/logging"
	"crux/internal/run"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewStartCmd starts the daemon (background).
func NewStartCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start crux daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := ensureNotRunning(cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Paths.PidPath), 0o755); err != nil {
				return err
			}
			self, err := os.Executable()
			if err != nil {
				return err
			}
			child := exec.Command(self, "serve", "--config", cfg.Paths.ConfigPath)
			child.Env = os.Environ()
			// propagate runtime flags via env overrides
			if cmd.Flag("no-gpt").Changed {
				child.Env = append(child.Env, "CRUX_GPT_ENABLED=0")
			}
			if lang := cmd.Flag("language").Value.String(); lang != "" {
				child.Env = append(child.Env, fmt.Sprintf("CRUX_LANGUAGE=%s", lang))
			}
			if addr := cmd.Flag("metrics-addr").Value.String(); addr != "" {
				child.Env = append(child.Env, fmt.Sprintf("CRUX_METRICS_ADDR=%s", addr))
			}
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			if err := child.Start(); err != nil {
				return err
			}
			// Wait a moment and confirm pid file appears.
			waited := 0
			for waited < 20 {
				if _, err := os.Stat(cfg.Paths.PidPath); err == nil {
					break
				}
				time.Sleep(100 * time.Millisecond)
				waited++
			}
			fmt.Printf("crux started (pid %d)\n", child.Process.Pid)
			return nil
		},
	}
	cmd.Flags().Bool("no-gpt", false, "disable the GPT fallback for this run")
	cmd.Flags().String("language", "", "language preference for this run (en, ta)")
	cmd.Flags().String("metrics-addr", "", "enable metrics at address (e.g., 127.0.0.1:9343) for this run")
	return cmd
}

// NewServeCmd runs the daemon foreground (internal).
func NewServeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "serve",
		Short:  "Run crux daemon (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Optional .env next to the working directory supplies
			// OPENAI_API_KEY for development setups.
			_ = godotenv.Load()
			if cmd.Flag("no-gpt").Changed {
				if err := os.Setenv("CRUX_GPT_ENABLED", "0"); err != nil {
					return fmt.Errorf("set CRUX_GPT_ENABLED: %w", err)
				}
			}
			if lang := cmd.Flag("language").Value.String(); lang != "" {
				if err := os.Setenv("CRUX_LANGUAGE", lang); err != nil {
					return fmt.Errorf("set CRUX_LANGUAGE: %w", err)
				}
			}
			if addr := cmd.Flag("metrics-addr").Value.String(); addr != "" {
				if err := os.Setenv("CRUX_METRICS_ADDR", addr); err != nil {
					return fmt.Errorf("set CRUX_METRICS_ADDR: %w", err)
				}
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			return run.Serve(cfg, logger)
		},
	}
	cmd.Flags().Bool("no-gpt", false, "disable the GPT fallback")
	cmd.Flags().String("language", "", "language preference (en, ta)")
	cmd.Flags().String("metrics-addr", "", "enable metrics at address (e.g., 127.0.0.1:9343)")
	return cmd
}

// NewStopCmd stops the daemon.
func NewStopCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop crux daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			pid, err := readPID(cfg.Paths.PidPath)
			if err != nil {
				return err
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return err
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return err
			}
			fmt.Println("stop signal sent")
			return nil
		},
	}
}

// NewRestartCmd stops then starts.
func NewRestartCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart crux daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopCmd := NewStopCmd(cfgPath)
			_ = stopCmd.RunE(stopCmd, args) // ignore error if not running

			if err := waitForShutdown(*cfgPath, 5*time.Second); err != nil {
				return err
			}

			startCmd := NewStartCmd(cfgPath)
			return startCmd.RunE(startCmd, args)
		},
	}
}

func ensureNotRunning(cfg *config.Config) error {
	pid, err := readPID(cfg.Paths.PidPath)
	if err != nil {
		return nil
	}
	// Check if process alive.
	proc, err := os.FindProcess(pid)
	if err == nil {
		if err := proc.Signal(syscall.Signal(0)); err == nil {
			return fmt.Errorf("already running with pid %d", pid)
		}
	}
	return nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

func waitForShutdown(cfgPath string, timeout time.Duration) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pid, err := readPID(cfg.Paths.PidPath)
		if err != nil {
			return nil // pid file gone
		}
		proc, _ := os.FindProcess(pid)
		if proc != nil {
			if err := proc.Signal(syscall.Signal(0)); err != nil {
				_ = os.Remove(cfg.Paths.PidPath)
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("restart: daemon did not stop within %s", timeout)
}
