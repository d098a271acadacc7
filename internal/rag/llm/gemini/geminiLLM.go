package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/rag/llm"
	"github.com/akolanti/irbench/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", cfg.Model)
	return &llmClient{client: c, modelName: cfg.Model, logger: logger}, nil
}

func (c *llmClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	contentConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		contentConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		c.logger.WithTrace(ctx).Error("Gemini generation failed", "error", err)
		return "", err
	}
	return result.Text(), nil
}
