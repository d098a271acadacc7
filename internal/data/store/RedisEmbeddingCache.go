package store

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/redisStore"
	"github.com/akolanti/irbench/pkg/logger_i"
)

// RedisEmbeddingCache stores float32 vectors keyed by model and text digest.
type RedisEmbeddingCache struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisEmbeddingCache(ctx context.Context, cfg config.RedisConfig) *RedisEmbeddingCache {
	s := redisStore.GetRedisStore(ctx, cfg, config.RedisEmbeddingCache)
	if s == nil {
		return nil
	}
	return NewRedisEmbeddingCache(s)
}

func NewRedisEmbeddingCache(s *redisStore.Store) *RedisEmbeddingCache {
	return &RedisEmbeddingCache{store: s, logger: logger_i.NewLogger("EmbeddingCache")}
}

func embeddingKey(model, text string) string {
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf("emb:%s:%s", model, hex.EncodeToString(sum[:]))
}

// GetMany returns one vector per text, nil on a miss.
func (c *RedisEmbeddingCache) GetMany(ctx context.Context, model string, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = embeddingKey(model, t)
	}
	raw, err := c.store.MGetBytes(ctx, keys...)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, b := range raw {
		if b != nil {
			out[i] = decodeVector(b)
		}
	}
	return out, nil
}

func (c *RedisEmbeddingCache) Put(ctx context.Context, model, text string, vector []float32) error {
	return c.store.Set(ctx, embeddingKey(model, text), encodeVector(vector), config.RedisEmbeddingCacheTTL)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
