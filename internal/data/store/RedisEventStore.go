package store

import (
	"context"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/redisStore"
	"github.com/akolanti/irbench/pkg/logger_i"
)

const eventKeyPrefix = "events:"

type RedisEventStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisEventStore(ctx context.Context, cfg config.RedisConfig) *RedisEventStore {
	s := redisStore.GetRedisStore(ctx, cfg, config.RedisEventStore)
	if s == nil {
		return nil
	}
	return NewRedisEventStore(s)
}

func NewRedisEventStore(s *redisStore.Store) *RedisEventStore {
	return &RedisEventStore{
		store:  s,
		logger: logger_i.NewLogger("EventStore"),
	}
}

func (s *RedisEventStore) AppendEvent(ctx context.Context, jobID string, event string) error {
	err := s.store.ListPush(ctx, eventKeyPrefix+jobID, event, config.EventStoreMaxLen, config.RedisEventStoreTTL)
	if err != nil {
		s.logger.WithTrace(ctx).Error("error saving event", "jobId", jobID, "error", err)
	}
	return err
}

func (s *RedisEventStore) RecentEvents(ctx context.Context, jobID string) ([]string, error) {
	res, err := s.store.ListTail(ctx, eventKeyPrefix+jobID, config.EventStoreMaxLen)
	if err != nil {
		s.logger.WithTrace(ctx).Error("Error getting events", "jobId", jobID, "error", err)
		return nil, err
	}
	return res, nil
}
