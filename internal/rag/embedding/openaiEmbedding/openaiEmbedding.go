// Package openaiEmbedding embeds text through an OpenAI-compatible
// /v1/embeddings endpoint, such as bge-m3 served by xinference.
package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/rag/embedding"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api       openai.Client
	model     string
	batchSize int
	logger    *logger_i.Logger
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig, httpClient *http.Client) (embedding.Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai embedding: model not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey(cfg.APIKey))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		logger:    logger_i.NewLogger("openai_embedding"),
	}, nil
}

// local servers accept any key, the SDK does not accept an empty one
func apiKey(k string) string {
	if k == "" {
		return "not-needed"
	}
	return k
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	out, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	size := c.batchSize
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += size {
		vecs, err := c.embed(ctx, texts[i:min(i+size, len(texts))])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error getting Embeddings", "model", c.model, "error", err)
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embedding: index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
