package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxJitter           = 30 * time.Second
)

// entry wraps a cached value with the time it was fetched so hits can tell
// whether a refresh is due.
type entry[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ReadThrough serves values from a Store, loading misses through a singleflight
// group and refreshing entries in the background once they pass half their TTL.
// Writes through Put and Invalidate bump a per-key generation; a fetch that started
// under an older generation is not written back.
type ReadThrough struct {
	store  Store
	sf     singleflight.Group
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	gens map[string]uint64
}

func NewReadThrough(store Store, ttl time.Duration, logger *zap.Logger) *ReadThrough {
	if store == nil {
		store = Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadThrough{store: store, ttl: ttl, logger: logger, now: time.Now, gens: make(map[string]uint64)}
}

// Invalidate drops keys so the next read fetches fresh data.
func (r *ReadThrough) Invalidate(ctx context.Context, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		r.gens[k]++
	}
	if err := r.store.Delete(ctx, keys...); err != nil {
		r.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Put stores value as the current entry for key. Fetches already in flight for key
// will not overwrite it.
func Put[T any](ctx context.Context, r *ReadThrough, key string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[key]++
	if !r.set(ctx, key, entry[T]{Value: value, FetchedAt: r.now()}) {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *ReadThrough) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[key]
}

// addTTLJitter spreads expirations by up to ±15s.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= maxJitter {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(int64(maxJitter))) - maxJitter/2
}

func (r *ReadThrough) stale(fetchedAt time.Time) bool {
	return r.now().Sub(fetchedAt) > r.ttl/2
}

func (r *ReadThrough) set(ctx context.Context, key string, e any) bool {
	ttl := addTTLJitter(r.ttl)
	if err := r.store.Set(ctx, key, e, ttl); err != nil {
		r.logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
		return false
	}
	r.logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttl))
	return true
}

// put writes a fetched value unless key was written or invalidated since gen.
func put[T any](ctx context.Context, r *ReadThrough, key string, gen uint64, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[key] != gen {
		r.logger.Debug("discarding superseded fetch", zap.String("key", key))
		return
	}
	r.set(ctx, key, entry[T]{Value: value, FetchedAt: r.now()})
}

func flightKey(key string, gen uint64) string {
	return fmt.Sprintf("%s#%d", key, gen)
}

func refresh[T any](r *ReadThrough, key string, fn FetchFunc[T]) {
	gen := r.generation(key)
	go func() {
		_, _, _ = r.sf.Do(flightKey(key, gen)+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				r.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}

			setCtx, cancelSet := context.WithTimeout(context.Background(), defaultSetTimeout)
			defer cancelSet()
			put(setCtx, r, key, gen, value)
			return nil, nil
		})
	}()
}

// FindAndCache returns the cached value for key, or loads it with fn. Concurrent
// misses for the same key share one fetch. Fetch errors are never cached.
func FindAndCache[T any](ctx context.Context, r *ReadThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached entry[T]
	err := r.store.Get(ctx, key, &cached)
	switch {
	case err == nil:
		r.logger.Debug("cache hit", zap.String("key", key))
		if r.stale(cached.FetchedAt) {
			refresh(r, key, fn)
		}
		return cached.Value, nil

	case errors.Is(err, ErrMiss):
		r.logger.Debug("cache miss", zap.String("key", key))

	default:
		r.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	gen := r.generation(key)
	v, err, shared := r.sf.Do(flightKey(key, gen), func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		go func(v T) {
			setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
			defer cancel()
			put(setCtx, r, key, gen, v)
		}(value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		r.logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}
