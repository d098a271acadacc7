package embedding

import (
	"context"
	"fmt"

	"github.com/akolanti/irbench/pkg/logger_i"
)

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache stores vectors per (model, text). GetMany returns nil entries for misses.
type Cache interface {
	GetMany(ctx context.Context, model string, texts []string) ([][]float32, error)
	Put(ctx context.Context, model, text string, vec []float32) error
}

type cached struct {
	inner  Embedder
	cache  Cache
	model  string
	logger *logger_i.Logger
}

// WithCache wraps e so that repeated texts are served from c. A nil cache
// returns e unchanged. Cache failures degrade to direct calls.
func WithCache(e Embedder, c Cache, model string) Embedder {
	if c == nil {
		return e
	}
	return &cached{inner: e, cache: c, model: model, logger: logger_i.NewLogger("embedding_cache")}
}

func (c *cached) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	out, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *cached) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := c.cache.GetMany(ctx, c.model, texts)
	if err != nil || len(out) != len(texts) {
		c.logger.Warn("embedding cache read failed", "error", err)
		out = make([][]float32, len(texts))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.BatchEmbedding(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := c.cache.Put(ctx, c.model, texts[i], fresh[j]); err != nil {
			c.logger.Debug("embedding cache write failed", "error", err)
		}
	}
	return out, nil
}
