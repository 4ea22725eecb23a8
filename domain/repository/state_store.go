package repository

import (
	"context"
	"time"
)

// IStateStore is a TTL keyed store with single consumption semantics.
type IStateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetAndDelete atomically returns and removes key. It returns
	// model.ErrStateNotFound when the key is absent or expired.
	GetAndDelete(ctx context.Context, key string) ([]byte, error)
}
