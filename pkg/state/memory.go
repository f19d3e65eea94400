package state

import (
	"context"
	"sync"
	"time"

	"slackadder/pkg/logger"
)

type memoryEntry struct {
	value   interface{}
	expires time.Time
}

// MemoryStore is a process-local store with per-key expiry.
type MemoryStore struct {
	log        *logger.Logger
	mu         sync.RWMutex
	data       map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(log *logger.Logger, defaultTTL time.Duration) *MemoryStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &MemoryStore{
		log:        log,
		data:       make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get retrieves a value from the store.
func (s *MemoryStore) Get(_ context.Context, key string) (interface{}, bool, error) {
	s.mu.RLock()
	entry, exists := s.data[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		s.mu.Lock()
		if current, ok := s.data[key]; ok && current.expires.Equal(entry.expires) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// GetString retrieves a string value.
func (s *MemoryStore) GetString(ctx context.Context, key string) (string, bool, error) {
	return stringValue(s.Get(ctx, key))
}

// GetMap retrieves a map value.
func (s *MemoryStore) GetMap(ctx context.Context, key string) (map[string]interface{}, bool, error) {
	return mapValue(s.Get(ctx, key))
}

// Set stores a value.
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return s.SetMany(ctx, map[string]interface{}{key: value}, ttl)
}

// SetMany stores several values with the same ttl.
func (s *MemoryStore) SetMany(_ context.Context, values map[string]interface{}, ttl time.Duration) error {
	ttl = effectiveTTL(ttl, s.defaultTTL)

	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		s.data[key] = memoryEntry{value: value, expires: expires}
	}
	return nil
}

// Delete removes a value.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Clear removes all data from the store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]memoryEntry)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
