package cache

import (
	"context"
	"errors"
)

// Cache stores JSON-serialisable values under string keys.
type Cache interface {
	// Get decodes the value stored at key into dst, or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop is used when no cache backend is configured; every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string, any) error  { return ErrCacheMiss }
func (Noop) Set(context.Context, string, any) error  { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
