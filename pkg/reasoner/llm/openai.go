package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/manik3160/NeverDown/internal/config"
	"github.com/manik3160/NeverDown/pkg/domain"
	"github.com/sirupsen/logrus"
)

// openaiClient is the OpenAILike variant. No OpenAI SDK appears anywhere
// in the example pack, so this speaks the chat-completions REST contract
// directly over net/http — the one place this package falls back to the
// standard library rather than a third-party client.
type openaiClient struct {
	cfg        config.LLMSettings
	logger     *logrus.Logger
	httpClient *http.Client
	baseURL    string
}

func newOpenAIClient(cfg config.LLMSettings, logger *logrus.Logger) *openaiClient {
	return &openaiClient{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    "https://api.openai.com/v1/chat/completions",
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *openaiClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (Response, error) {
	body, err := json.Marshal(openaiRequest{
		Model: c.cfg.Model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+string(c.cfg.APIKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("openai chat call: %w", err)
	}
	defer resp.Body.Close()

	var parsed openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("decode openai response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("openai response contained no choices")
	}

	return Response{
		Content: parsed.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}
