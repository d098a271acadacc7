package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return s.client.Get(ctx, key).Bytes()
}

// MGetBytes returns one entry per key, nil where the key is missing.
func (s *Store) MGetBytes(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		if str, ok := v.(string); ok {
			out[i] = []byte(str)
		}
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// ListPush appends to a capped list and refreshes its ttl.
func (s *Store) ListPush(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, value)
	if maxLen > 0 {
		pipe.LTrim(ctx, key, -maxLen, -1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.getCount(ctx, key)
	return count > 0, err
}

func (s *Store) getCount(ctx context.Context, key string) (int64, error) {
	return s.client.Exists(ctx, key).Result()
}

// ListTail returns at most n trailing entries, oldest first.
func (s *Store) ListTail(ctx context.Context, key string, n int64) ([]string, error) {
	exists, err := s.Exists(ctx, key)
	if !exists || err != nil {
		return []string{}, err
	}
	if n <= 0 {
		return s.ListGetAll(ctx, key)
	}
	return s.listRange(ctx, key, -n)
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.listRange(ctx, key, int64(0))
}

func (s *Store) listRange(ctx context.Context, key string, start int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, -1).Result()
}
