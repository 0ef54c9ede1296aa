package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/shared"
	"github.com/landplots/backend/internal/infrastructure/config"
)

// Locker hands out named leases
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (UnlockFunc, bool, error)
}

// Stores bundles the idempotency store and the lock used by the sync layer
type Stores struct {
	Idempotency shared.IdempotencyStore
	Locker      Locker
	Backend     string // "redis" or "memory"

	client redis.UniversalClient
}

// Close releases the stores and the Redis connection
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if s.client != nil {
		err = errors.Join(err, s.client.Close())
	}
	return err
}

// StoreFactory builds Stores from configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// process-local stores. Default true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InMemory returns process-local stores
func (f *StoreFactory) InMemory() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Locker:      NewLocalLocker(),
		Backend:     "memory",
	}
}

// Create returns Redis-backed stores when Redis is enabled and reachable,
// and in-memory stores otherwise.
func (f *StoreFactory) Create(ctx context.Context) (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory sync stores")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for sync stores but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory sync stores",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return f.InMemory(), nil
	}

	f.logger.Info("Using Redis sync stores", zap.String("addr", f.redisConfig.Addr()))
	return NewRedisStores(client, f.redisConfig.KeyPrefix), nil
}

// NewRedisStores builds stores over client; Close closes the client
func NewRedisStores(client redis.UniversalClient, keyPrefix string) *Stores {
	return &Stores{
		Idempotency: NewRedisIdempotencyStoreWithClient(client, keyPrefix),
		Locker:      NewRedisLocker(client, keyPrefix),
		Backend:     "redis",
		client:      client,
	}
}
