// Package state provides the expiring key-value cache used for Slack lookups,
// with in-memory and Redis backends.
package state

import (
	"context"
	"time"
)

// KV is the interface for key-value storage backends.
type KV interface {
	// Get retrieves a value from the store.
	Get(ctx context.Context, key string) (interface{}, bool, error)

	// GetString retrieves a string value.
	GetString(ctx context.Context, key string) (string, bool, error)

	// GetMap retrieves a map value.
	GetMap(ctx context.Context, key string) (map[string]interface{}, bool, error)

	// Set stores a value. A zero ttl falls back to the store default;
	// a negative ttl keeps the value until it is deleted.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetMany stores several values with the same ttl.
	SetMany(ctx context.Context, values map[string]interface{}, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error

	// Close closes the store and performs cleanup.
	Close() error
}

// BackendType represents the storage backend type.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendRedis  BackendType = "redis"
)

// Config configures the state store.
type Config struct {
	Backend BackendType

	// DefaultTTL applies when Set is called with a zero ttl.
	DefaultTTL time.Duration

	// Redis backend config
	RedisAddr     string // Redis address (host:port)
	RedisPassword string // Redis password
	RedisDB       int    // Redis database number
	RedisPrefix   string // Key prefix for namespacing
}

func effectiveTTL(ttl, fallback time.Duration) time.Duration {
	if ttl == 0 {
		return fallback
	}
	return ttl
}

func stringValue(value interface{}, exists bool, err error) (string, bool, error) {
	if err != nil || !exists {
		return "", false, err
	}
	str, ok := value.(string)
	return str, ok, nil
}

func mapValue(value interface{}, exists bool, err error) (map[string]interface{}, bool, error) {
	if err != nil || !exists {
		return nil, false, err
	}
	m, ok := value.(map[string]interface{})
	return m, ok, nil
}
