package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	o := &Options{}
	for _, opt := range []Option{
		WithURI("mongodb://db:27017"),
		WithAppName("npsload"),
		WithMaxPoolSize(5),
		WithConnectTimeout(2 * time.Second),
		WithServerSelectionTimeout(time.Second),
		WithRetry(4, 10*time.Millisecond),
	} {
		opt(o)
	}

	assert.Equal(t, "mongodb://db:27017", o.URI)
	assert.Equal(t, 4, o.RetryAttempts)
	assert.Equal(t, 10*time.Millisecond, o.RetryDelay)

	co := o.clientOptions()
	require.NoError(t, co.Validate())
	require.NotNil(t, co.AppName)
	assert.Equal(t, "npsload", *co.AppName)
	require.NotNil(t, co.MaxPoolSize)
	assert.Equal(t, uint64(5), *co.MaxPoolSize)
	assert.Equal(t, []string{"db:27017"}, co.Hosts)
}

func TestNew(t *testing.T) {
	t.Run("empty uri", func(t *testing.T) {
		_, err := New(context.Background(), WithURI(""))
		assert.ErrorContains(t, err, "uri cannot be empty")
	})

	t.Run("invalid uri fails after retries", func(t *testing.T) {
		_, err := New(context.Background(), WithURI("http://not-mongo"), WithRetry(2, time.Millisecond))
		assert.ErrorContains(t, err, "after 2 attempts")
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(ctx, WithURI("http://not-mongo"), WithRetry(5, time.Hour))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
