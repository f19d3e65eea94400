package state

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"slackadder/pkg/config"
	"slackadder/pkg/logger"
)

// Module is the fx module for the lookup cache.
var Module = fx.Module("state",
	fx.Provide(NewKVStore),
)

// NewKVStore creates the configured KV store for fx.
func NewKVStore(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
) (KV, error) {
	stateConfig := &Config{
		Backend:       BackendType(cfg.Cache.Backend),
		DefaultTTL:    cfg.Cache.TTL,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   cfg.Cache.Prefix,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewKV(ctx, log, stateConfig)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Lookup cache initialized",
				zap.String("backend", string(stateConfig.Backend)),
				zap.Duration("ttl", stateConfig.DefaultTTL))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
