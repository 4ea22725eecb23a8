package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"social-publisher/domain/model"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStateStore is the single-instance fallback used when Redis is not
// configured. The mutex makes get-and-delete atomic within the process.
type MemoryStateStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewMemoryStateStore(defaultTTL time.Duration) *MemoryStateStore {
	return &MemoryStateStore{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *MemoryStateStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, value, ttl)
	return nil
}

func (m *MemoryStateStore) GetAndDelete(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return nil, model.ErrStateNotFound
	}
	m.c.Delete(key)
	b, _ := v.([]byte)
	return b, nil
}
