// Package llm sends unhandled utterances to the hosted language model.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"crux/internal/config"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// Client wraps the hosted chat-completion API with the configured system
// prompt and sampling parameters.
type Client struct {
	client       openai.Client
	model        string
	maxTokens    int64
	temperature  float64
	systemPrompt string
	logger       *logrus.Logger
}

// ResolveAPIKey returns the credential from config, falling back to the
// configured environment variable. Empty means the integration is unusable.
func ResolveAPIKey(cfg *config.Config) string {
	if key := strings.TrimSpace(cfg.GPT.APIKey); key != "" {
		return key
	}
	envKey := cfg.GPT.EnvAPIKey
	if envKey == "" {
		envKey = "OPENAI_API_KEY"
	}
	return strings.TrimSpace(os.Getenv(envKey))
}

// New returns a Client, or nil when the integration is disabled or has no
// usable credential (logged once).
func New(cfg *config.Config, logger *logrus.Logger) *Client {
	if !cfg.GPT.Enabled {
		return nil
	}
	key := ResolveAPIKey(cfg)
	if key == "" {
		logger.Warn("gpt enabled but no API key set")
		return nil
	}
	return &Client{
		client:       openai.NewClient(option.WithAPIKey(key)),
		model:        cfg.GPT.Model,
		maxTokens:    int64(cfg.GPT.MaxTokens),
		temperature:  cfg.GPT.Temperature,
		systemPrompt: cfg.GPT.SystemPrompt,
		logger:       logger,
	}
}

// Query sends text as the user message and returns the model's reply
// trimmed of surrounding whitespace.
func (c *Client) Query(ctx context.Context, text string) (string, error) {
	c.logger.Debugf("gpt request: %q", text)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(text),
		},
		Model:               openai.ChatModel(c.model),
		MaxCompletionTokens: openai.Int(c.maxTokens),
		Temperature:         openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
