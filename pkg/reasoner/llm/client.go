// Package llm provides a provider-agnostic chat-completion abstraction for
// the Reasoner, grounded on the teacher's own `NewClient(cfg, logger)
// (Client, error)` construction shape (pkg/ai/llm/client_test.go).
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/sirupsen/logrus"
)

// Response is the result of one chat-completion call.
type Response struct {
	Content string
	Usage   domain.TokenUsage
}

// Client is the capability the Reasoner depends on: a single
// system+user turn, returning text and token usage.
type Client interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (Response, error)
}

// NewClient builds the Client for cfg.Provider, mirroring the teacher's
// provider switch and "unsupported provider: %s" error text.
func NewClient(cfg config.LLMSettings, logger *logrus.Logger) (Client, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch cfg.Provider {
	case "anthropic":
		return &anthropicClient{cfg: cfg, logger: logger, sdk: anthropic.NewClient(option.WithAPIKey(string(cfg.APIKey)))}, nil
	case "openai":
		return newOpenAIClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// anthropicClient is the AnthropicLike variant, backed by
// anthropic-sdk-go's Messages API.
type anthropicClient struct {
	cfg    config.LLMSettings
	logger *logrus.Logger
	sdk    anthropic.Client
}

func (c *anthropicClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("anthropic chat call: %w", err)
	}

	var content string
	for _, block := range msg.Content {
		if text := block.AsAny(); text != nil {
			if tb, ok := text.(anthropic.TextBlock); ok {
				content += tb.Text
			}
		}
	}

	return Response{
		Content: content,
		Usage: domain.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
