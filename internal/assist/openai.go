package assist

import (
	"context"
	"fmt"

	"github.com/hollis/reportline/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompleter calls an OpenAI-compatible chat completion endpoint.
type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
	cfg       *config.AssistConfig
}

func NewOpenAICompleter(cfg *config.AssistConfig) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAICompleter{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		cfg:       cfg,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt, input string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", resp.Usage.TotalTokens, fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

var _ Completer = (*OpenAICompleter)(nil)
