package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := New(context.Background(), WithAddress(mr.Addr()), WithPrefix("test:"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := New(ctx, WithAddress("127.0.0.1:1"))
	assert.ErrorContains(t, err, "ping redis")
}

func TestCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", payload{Name: "mobile", Score: 33.33}, time.Minute))
	assert.True(t, mr.Exists("test:k"))

	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "mobile", Score: 33.33}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))
	assert.False(t, mr.Exists("test:a"))
	assert.NoError(t, c.Delete(ctx))
}

func TestCache_DeleteMatching(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("other:responses:mobile:0:10:", "{}"))
	for _, k := range []string{"responses:mobile:0:10:", "responses:mobile:7:8:neutral", "responses:web:0:10:"} {
		require.NoError(t, c.Set(ctx, k, 1, 0))
	}

	n, err := c.DeleteMatching(ctx, "responses:mobile:*")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("test:responses:mobile:0:10:"))
	assert.True(t, mr.Exists("test:responses:web:0:10:"))
	assert.True(t, mr.Exists("other:responses:mobile:0:10:"))

	n, err = c.DeleteMatching(ctx, "responses:mobile:*")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNoop(t *testing.T) {
	var n Noop
	ctx := context.Background()

	assert.NoError(t, n.Set(ctx, "k", 1, time.Minute))
	assert.ErrorIs(t, n.Get(ctx, "k", new(int)), ErrMiss)
	assert.NoError(t, n.Delete(ctx, "k"))
	assert.NoError(t, n.Close())
}

func TestAddTTLJitter(t *testing.T) {
	assert.Equal(t, 10*time.Second, addTTLJitter(10*time.Second))
	for i := 0; i < 50; i++ {
		got := addTTLJitter(5 * time.Minute)
		assert.GreaterOrEqual(t, got, 5*time.Minute-15*time.Second)
		assert.Less(t, got, 5*time.Minute+15*time.Second)
	}
}

func TestFindAndCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss loads and populates", func(t *testing.T) {
		c, _ := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, zap.NewNop())
		calls := 0

		got, err := FindAndCache(ctx, rt, "metrics:mobile", func(ctx context.Context) (payload, error) {
			calls++
			return payload{Name: "mobile", Score: 12.5}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, payload{Name: "mobile", Score: 12.5}, got)
		assert.Equal(t, 1, calls)

		assert.Eventually(t, func() bool {
			var e entry[payload]
			return c.Get(ctx, "metrics:mobile", &e) == nil && e.Value.Name == "mobile"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("fresh hit skips fetch", func(t *testing.T) {
		c, _ := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, zap.NewNop())
		require.NoError(t, c.Set(ctx, "k", entry[payload]{Value: payload{Name: "cached"}, FetchedAt: time.Now()}, time.Minute))

		var calls atomic.Int32
		got, err := FindAndCache(ctx, rt, "k", func(ctx context.Context) (payload, error) {
			calls.Add(1)
			return payload{Name: "fresh"}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "cached", got.Name)
		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("stale hit refreshes in background", func(t *testing.T) {
		c, _ := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, zap.NewNop())
		old := time.Now().Add(-45 * time.Second)
		require.NoError(t, c.Set(ctx, "k", entry[payload]{Value: payload{Name: "old"}, FetchedAt: old}, time.Minute))

		got, err := FindAndCache(ctx, rt, "k", func(ctx context.Context) (payload, error) {
			return payload{Name: "new"}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "old", got.Name)
		assert.Eventually(t, func() bool {
			var e entry[payload]
			return c.Get(ctx, "k", &e) == nil && e.Value.Name == "new"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("errors are returned and not cached", func(t *testing.T) {
		c, mr := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, zap.NewNop())

		_, err := FindAndCache(ctx, rt, "k", func(ctx context.Context) (payload, error) {
			return payload{}, errors.New("db down")
		})

		assert.ErrorContains(t, err, "db down")
		time.Sleep(20 * time.Millisecond)
		assert.False(t, mr.Exists("test:k"))
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		rt := NewReadThrough(Noop{}, time.Minute, zap.NewNop())
		var calls atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := FindAndCache(ctx, rt, "k", func(ctx context.Context) (int, error) {
					calls.Add(1)
					<-release
					return 42, nil
				})
				assert.NoError(t, err)
				assert.Equal(t, 42, got)
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		c, mr := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, nil)
		require.NoError(t, c.Set(ctx, "k", entry[int]{Value: 1, FetchedAt: time.Now()}, time.Minute))

		rt.Invalidate(ctx, "k")

		assert.False(t, mr.Exists("test:k"))
	})

	t.Run("put supersedes a fetch in flight", func(t *testing.T) {
		c, _ := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, zap.NewNop())
		started := make(chan struct{})
		release := make(chan struct{})

		done := make(chan payload, 1)
		go func() {
			got, err := FindAndCache(ctx, rt, "k", func(ctx context.Context) (payload, error) {
				close(started)
				<-release
				return payload{Name: "old"}, nil
			})
			assert.NoError(t, err)
			done <- got
		}()

		<-started
		Put(ctx, rt, "k", payload{Name: "new"})
		close(release)
		assert.Equal(t, "old", (<-done).Name)
		time.Sleep(50 * time.Millisecond)

		var e entry[payload]
		require.NoError(t, c.Get(ctx, "k", &e))
		assert.Equal(t, "new", e.Value.Name)
	})

	t.Run("invalidate discards a fetch in flight", func(t *testing.T) {
		c, mr := newTestCache(t)
		rt := NewReadThrough(c, time.Minute, zap.NewNop())
		started := make(chan struct{})
		release := make(chan struct{})

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := FindAndCache(ctx, rt, "k", func(ctx context.Context) (int, error) {
				close(started)
				<-release
				return 1, nil
			})
			assert.NoError(t, err)
		}()

		<-started
		rt.Invalidate(ctx, "k")
		close(release)
		<-done
		time.Sleep(50 * time.Millisecond)

		assert.False(t, mr.Exists("test:k"))
	})
}
