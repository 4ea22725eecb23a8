package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"

	"github.com/redis/go-redis/v9"
)

// StateKeyPrefix namespaces OAuth authorization state keys.
const StateKeyPrefix = "oauth:state:"

// RedisStateStore keeps short lived OAuth state in Redis.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore namespaces every key with prefix, e.g. StateKeyPrefix.
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store state in redis: %w", err)
	}
	return nil
}

// GetAndDelete uses GETDEL so a key can be consumed at most once.
func (s *RedisStateStore) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, model.ErrStateNotFound
	}
	data, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to retrieve state from redis: %w", err)
	}
	return data, nil
}
