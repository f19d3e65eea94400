package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slackadder/pkg/logger"
)

// RedisStore is a Redis-based key-value store. Values are stored as JSON so
// several bot replicas can share lookups.
type RedisStore struct {
	log        *logger.Logger
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	Addr       string // Redis address (host:port)
	Password   string // Redis password
	DB         int    // Redis database number
	Prefix     string // Key prefix for namespacing
	DefaultTTL time.Duration
}

// NewRedisStore creates a new Redis-based state store.
func NewRedisStore(ctx context.Context, log *logger.Logger, cfg *RedisStoreConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "slackadder:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	log.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("prefix", cfg.Prefix))

	return &RedisStore{
		log:        log,
		client:     client,
		prefix:     cfg.Prefix,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

func (s *RedisStore) prefixKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) expiration(ttl time.Duration) time.Duration {
	ttl = effectiveTTL(ttl, s.defaultTTL)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Get retrieves a value from the store.
func (s *RedisStore) Get(ctx context.Context, key string) (interface{}, bool, error) {
	val, err := s.client.Get(ctx, s.prefixKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result interface{}
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return val, true, nil
	}
	return result, true, nil
}

// GetString retrieves a string value.
func (s *RedisStore) GetString(ctx context.Context, key string) (string, bool, error) {
	return stringValue(s.Get(ctx, key))
}

// GetMap retrieves a map value.
func (s *RedisStore) GetMap(ctx context.Context, key string) (map[string]interface{}, bool, error) {
	return mapValue(s.Get(ctx, key))
}

// Set stores a value.
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value: %w", err)
	}
	if err := s.client.Set(ctx, s.prefixKey(key), data, s.expiration(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// SetMany stores several values in one pipeline.
func (s *RedisStore) SetMany(ctx context.Context, values map[string]interface{}, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	exp := s.expiration(ttl)

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			data, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshaling %s: %w", key, err)
			}
			pipe.Set(ctx, s.prefixKey(key), data, exp)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// Delete removes a value.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	s.log.Info("Cleared Redis cache", zap.Int("keys", removed))
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
