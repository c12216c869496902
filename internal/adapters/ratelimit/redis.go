package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a Redis-backed implementation of the RateLimitStore
// interface for multi-instance deployments, where every instance must see
// the same per-client counts. INCR is atomic server-side, so the
// check-and-increment needs no local locking, and key expiry replaces the
// in-memory sweep.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	max    int
	window time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a Redis rate limit store
func NewRedisStore(rdb *redis.Client, prefix string, max int, window time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		max:    max,
		window: window,
		logger: logger,
	}
}

// Allow increments the key's counter and reports whether it is within the
// limit. The window starts at the first submission and the key expires with
// it, which restarts the count exactly like the in-memory store's reset.
func (s *RedisStore) Allow(ctx context.Context, clientKey string) (bool, error) {
	key := fmt.Sprintf("%s:%s", s.prefix, clientKey)

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := s.rdb.Expire(ctx, key, s.window).Err(); err != nil {
			s.logger.Warn("Failed to set rate limit key expiry",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	return count <= int64(s.max), nil
}

// Stop closes the Redis connection
func (s *RedisStore) Stop() {
	if err := s.rdb.Close(); err != nil {
		s.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
