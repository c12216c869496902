package factory

import (
	"fmt"

	"github.com/lsmadison/clinic-forms/internal/adapters/ratelimit"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitFactory creates rate limit stores
type RateLimitFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRateLimitFactory creates a new rate limit store factory
func NewRateLimitFactory(cfg *config.Config, logger *zap.Logger) *RateLimitFactory {
	return &RateLimitFactory{cfg: cfg, logger: logger}
}

// CreateRateLimitStore creates a new rate limit store based on the configuration
func (f *RateLimitFactory) CreateRateLimitStore() (core.RateLimitStore, error) {
	spamCfg, err := f.cfg.GetSpam()
	if err != nil {
		return nil, err
	}

	switch storeType := f.cfg.GetString("ratelimit.type"); storeType {
	case "memory":
		return ratelimit.NewMemoryStore(
			spamCfg.MaxSubmissions,
			spamCfg.RateLimitWindow,
			spamCfg.SweepInterval,
			f.logger,
		), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     f.cfg.GetString("ratelimit.redis_addr"),
			Password: f.cfg.GetString("ratelimit.redis_password"),
			DB:       f.cfg.GetInt("ratelimit.redis_db"),
		})
		return ratelimit.NewRedisStore(
			rdb,
			f.cfg.GetString("ratelimit.redis_prefix"),
			spamCfg.MaxSubmissions,
			spamCfg.RateLimitWindow,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store type: %s", storeType)
	}
}
