// Package llm provides the text-generation oracle used for answer
// synthesis and LLM-assisted reranking. Retrieval itself never depends
// on it; every caller has a non-LLM fallback.
package llm

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/logscout/logscout/internal/errors"
)

// Completer produces a completion for a prompt.
type Completer interface {
	// Complete returns the model's response text for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Available reports whether the backend can currently serve requests.
	Available() bool
	// Close releases resources.
	Close() error
}

// Config configures the OpenAI-compatible completer.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAICompleter calls an OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAICompleter creates a chat-backed completer.
func NewOpenAICompleter(cfg Config) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "llm api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature <= 0 {
		// Low temperature keeps scoring and analysis output stable.
		cfg.Temperature = 0.1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeNetworkUnavailable, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrCodeInternal, "chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Available reports true; transport failures surface per call.
func (c *OpenAICompleter) Available() bool { return true }

// Close is a no-op.
func (c *OpenAICompleter) Close() error { return nil }

var _ Completer = (*OpenAICompleter)(nil)
