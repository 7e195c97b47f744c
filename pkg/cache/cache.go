package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the key/value contract the read-through helpers rely on. Values are
// serialised by the implementation.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Noop is a Store that never holds anything, used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string, any) error { return ErrMiss }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) Close() error { return nil }
