package state

import (
	"context"
	"fmt"

	"slackadder/pkg/logger"
)

// NewKV creates a new KV store based on configuration.
func NewKV(ctx context.Context, log *logger.Logger, cfg *Config) (KV, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(log, cfg.DefaultTTL), nil

	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis address is required")
		}

		return NewRedisStore(ctx, log, &RedisStoreConfig{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			Prefix:     cfg.RedisPrefix,
			DefaultTTL: cfg.DefaultTTL,
		})

	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend)
	}
}
