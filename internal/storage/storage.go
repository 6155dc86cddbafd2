package storage

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// KV is a flat key/value store with an explicit lifecycle contract
// (get/set/remove, no transactions). The durable implementation survives
// restarts; the session-scoped implementation does not. Components receive a
// KV instead of reaching for process-wide state so they can be tested in
// isolation.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys returns every key currently present, in unspecified order.
	Keys(ctx context.Context) ([]string, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
