package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:"

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 10 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal cached %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	// Jitter keeps entries written together from expiring together.
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	if err := r.client.Set(ctx, keyPrefix+key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
