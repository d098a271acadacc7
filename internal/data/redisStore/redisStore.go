package redisStore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    *logger_i.Logger
	once      sync.Once
)

type Store struct {
	client *redis.Client
	Type   int
}

// GetRedisStore returns the shared store for one logical redis DB, or nil
// when redis is unreachable. Stores are closed when ctx ends.
func GetRedisStore(ctx context.Context, cfg config.RedisConfig, dbType int) *Store {

	mu.RLock()
	instance, exists := instances[dbType]
	mu.RUnlock()

	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[dbType]; exists {
		return instance
	}
	return createNewStore(ctx, cfg, dbType)

}

func initLogger() {
	if logger == nil {
		logger = logger_i.NewLogger("redisStore")
	}
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for db, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(instances, db)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, cfg config.RedisConfig, dbType int) *Store {
	initLogger()
	addr := cfg.Addr
	if addr == "" {
		addr = config.RedisAddr
	}
	newClient := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              cfg.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	log := logger.With("db", strconv.Itoa(dbType), "addr", addr)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis is offline", "error", err)
		_ = newClient.Close()
		return nil
	}

	log.Info("Redis store init successfully")

	newStore := &Store{
		client: newClient,
		Type:   dbType,
	}

	instances[dbType] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore

}

// NewStore wraps an existing client, bypassing the shared instances.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}
