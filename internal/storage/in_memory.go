package storage

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryKV is the session-scoped store. Contents are lost when the process
// exits, which is exactly the lifetime the primary code-verifier slot wants.
type InMemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryKV creates an empty InMemoryKV.
func NewInMemoryKV() *InMemoryKV {
	return &InMemoryKV{values: make(map[string]string)}
}

// Get retrieves the value stored under key.
func (s *InMemoryKV) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: key %s", ErrNotFound, key)
	}
	return value, nil
}

// Set stores or replaces the value under key.
func (s *InMemoryKV) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *InMemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys returns every key currently stored.
func (s *InMemoryKV) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear removes every entry.
func (s *InMemoryKV) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}
