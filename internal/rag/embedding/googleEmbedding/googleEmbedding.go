package googleEmbedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/rag/embedding"
	"github.com/akolanti/irbench/pkg/logger_i"
	"google.golang.org/genai"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	batchSize int
	logger    *logger_i.Logger
}

func NewGoogleEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google embedding: api key not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create google embedding client: %w", err)
	}
	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", cfg.Model)
	return &client{
		genAi:     c,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := c.doCall(ctx, getContent([]string{text}), "RETRIEVAL_QUERY")
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error getting Embedding from Google", "error", err)
		return nil, err
	}
	if len(res.Embeddings) == 0 {
		return nil, errors.New("google embedding: empty response")
	}
	return res.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return inBatches(texts, c.batchSize, func(batch []string) ([][]float32, error) {
		return c.embedBatch(ctx, batch)
	})
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	conf := &genai.EmbedContentConfig{TaskType: task}
	if c.dimension > 0 {
		conf.OutputDimensionality = &c.dimension
	}
	return c.genAi.Models.EmbedContent(ctx, c.model, content, conf)
}
