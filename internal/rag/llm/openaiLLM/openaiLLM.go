// Package openaiLLM talks to any OpenAI-compatible chat completions endpoint,
// including locally served Qwen models.
package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/rag/llm"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api    openai.Client
	model  string
	logger *logger_i.Logger
}

func NewOpenAIClient(cfg config.LLMConfig, httpClient *http.Client) (llm.Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai llm: model not set")
	}
	key := cfg.APIKey
	if key == "" {
		key = "not-needed"
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &llmClient{
		api:    openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger_i.NewLogger("llm_openai"),
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		c.logger.WithTrace(ctx).Error("chat completion failed", "model", c.model, "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai llm: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
