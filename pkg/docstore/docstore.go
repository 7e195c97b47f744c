package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Options struct {
	URI             string
	AppName         string
	MaxPoolSize     uint64
	ConnectTimeout  time.Duration
	ServerSelection time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
}

type Option func(*Options)

func WithURI(uri string) Option {
	return func(o *Options) { o.URI = uri }
}

func WithAppName(name string) Option {
	return func(o *Options) { o.AppName = name }
}

func WithMaxPoolSize(size uint64) Option {
	return func(o *Options) { o.MaxPoolSize = size }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

func WithServerSelectionTimeout(d time.Duration) Option {
	return func(o *Options) { o.ServerSelection = d }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

func (o *Options) clientOptions() *options.ClientOptions {
	co := options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ServerSelection)
	if o.AppName != "" {
		co.SetAppName(o.AppName)
	}
	if o.MaxPoolSize > 0 {
		co.SetMaxPoolSize(o.MaxPoolSize)
	}
	return co
}

// New connects to MongoDB and verifies the primary is reachable, retrying with a
// linear backoff like the SQL pool builder.
func New(ctx context.Context, opts ...Option) (*mongo.Client, error) {
	o := &Options{
		URI:             "mongodb://localhost:27017",
		MaxPoolSize:     50,
		ConnectTimeout:  10 * time.Second,
		ServerSelection: 5 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.URI == "" {
		return nil, fmt.Errorf("mongo uri cannot be empty")
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 1
	}

	var (
		client *mongo.Client
		err    error
	)
	for i := 0; i < o.RetryAttempts; i++ {
		client, err = mongo.Connect(ctx, o.clientOptions())
		if err == nil {
			if err = client.Ping(ctx, readpref.Primary()); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}

		if i < o.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * o.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to mongo after %d attempts: %w", o.RetryAttempts, err)
}
