package control

import (
	"fmt"
	"strings"

	"crux/internal/config"
	"crux/internal/llm"
	"crux/internal/logging"
	"crux/internal/stt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a WAV file through the configured
// recognition backend and optionally routes the text to the daemon.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <wavfile>",
		Short: "Transcribe a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			samples, err := stt.DecodeWAVFile(args[0])
			if err != nil {
				return err
			}

			var client openai.Client
			if key := llm.ResolveAPIKey(cfg); key != "" {
				client = openai.NewClient(option.WithAPIKey(key))
			}
			backend := stt.NewBackend(cfg, client, logger)
			defer backend.Close()

			text := backend.Recognize(cmd.Context(), samples)
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no speech recognized")
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)

			send, _ := cmd.Flags().GetBool("send")
			if !send {
				return nil
			}
			var resp SimpleResponse
			if err := request(cfg, Request{Op: "text", Text: text}, &resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("send failed: %s", resp.Message)
			}
			return nil
		},
	}
	cmd.Flags().Bool("send", false, "also route the text through the running daemon")
	return cmd
}
