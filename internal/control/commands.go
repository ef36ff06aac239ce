package control

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"

	"crux/internal/config"
	"crux/internal/doctor"

	"github.com/spf13/cobra"
)

// request dials the daemon socket, sends one request, and decodes the
// response into out.
func request(cfg *config.Config, req Request, out any) error {
	conn, err := net.Dial("unix", cfg.Paths.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to daemon: %w", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return err
	}
	return json.NewDecoder(conn).Decode(out)
}

// NewStatusCmd queries daemon status.
func NewStatusCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var status Status
			if err := request(cfg, Request{Op: "status"}, &status); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
			}
			fmt.Printf("running: %v\nuptime: %.1fs\nlistening: %v\nengine: %s\n",
				status.Running, status.UptimeSec, status.Listening, status.Engine)
			for _, t := range status.Transcripts {
				fmt.Printf("%s  %-9s  %s\n", t.Timestamp.Format("15:04:05"), t.Role, t.Text)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewHealthCmd pings the daemon.
func NewHealthCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var resp SimpleResponse
			if err := request(cfg, Request{Op: "health"}, &resp); err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}

// NewSayCmd sends typed text through the assistant pipeline.
func NewSayCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "say \"some text\"",
		Short: "Send typed text to the assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var resp SimpleResponse
			if err := request(cfg, Request{Op: "text", Text: args[0]}, &resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("say failed: %s", resp.Message)
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}

// NewListenCmd toggles microphone capture in the running daemon.
func NewListenCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen <on|off>",
		Short: "Turn microphone capture on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			op := ""
			switch args[0] {
			case "on":
				op = "listen"
			case "off":
				op = "mute"
			default:
				return fmt.Errorf("argument must be on or off, got %q", args[0])
			}
			var resp SimpleResponse
			if err := request(cfg, Request{Op: op}, &resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Message)
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
	return cmd
}

// NewTranscriptsCmd prints the recent conversation tail.
func NewTranscriptsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transcripts",
		Short: "Show recent conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var out []Transcript
			if err := request(cfg, Request{Op: "transcripts"}, &out); err != nil {
				return err
			}
			for _, t := range out {
				fmt.Printf("%s  %-9s  %s\n", t.Timestamp.Format("15:04:05"), t.Role, t.Text)
			}
			return nil
		},
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tail-log",
		Short: "Show last 50 log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return tailFile(cfg.Paths.LogPath, 50)
		},
	}
}

func tailFile(path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Println(l)
		}
	}
	return nil
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Printf("%-18s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}
