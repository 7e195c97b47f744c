package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Options struct {
	Driver          string
	DataSource      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	BusyTimeout     time.Duration
	JournalMode     string
}

type Option func(*Options)

func WithDriver(driver string) Option {
	return func(o *Options) { o.Driver = driver }
}

func WithDataSource(dsn string) Option {
	return func(o *Options) { o.DataSource = dsn }
}

func WithMaxOpenConns(count int) Option {
	return func(o *Options) { o.MaxOpenConns = count }
}

func WithMaxIdleConns(count int) Option {
	return func(o *Options) { o.MaxIdleConns = count }
}

func WithConnMaxLifetime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxLifetime = duration }
}

func WithConnMaxIdleTime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxIdleTime = duration }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

// WithBusyTimeout makes sqlite wait for a lock instead of failing with SQLITE_BUSY.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *Options) { o.BusyTimeout = d }
}

// WithJournalMode sets the sqlite journal mode, e.g. "WAL". Ignored for in-memory databases.
func WithJournalMode(mode string) Option {
	return func(o *Options) { o.JournalMode = mode }
}

func isSQLite(driver string) bool {
	return strings.HasPrefix(driver, "sqlite")
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// dataSource appends the sqlite pragmas understood by go-sqlite3 to the DSN.
func (o *Options) dataSource() string {
	if !isSQLite(o.Driver) {
		return o.DataSource
	}
	params := url.Values{}
	if o.BusyTimeout > 0 {
		params.Set("_busy_timeout", fmt.Sprint(o.BusyTimeout.Milliseconds()))
	}
	if o.JournalMode != "" && !isMemory(o.DataSource) {
		params.Set("_journal_mode", o.JournalMode)
	}
	if len(params) == 0 {
		return o.DataSource
	}
	sep := "?"
	if strings.Contains(o.DataSource, "?") {
		sep = "&"
	}
	return o.DataSource + sep + params.Encode()
}

// ensureDir creates the parent directory of a sqlite file path.
func (o *Options) ensureDir() error {
	if !isSQLite(o.Driver) || isMemory(o.DataSource) {
		return nil
	}
	path := strings.TrimPrefix(o.DataSource, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// New creates a new database connection pool using the provided options.
func New(ctx context.Context, opts ...Option) (*sql.DB, error) {
	o := &Options{
		Driver:          "sqlite3",
		DataSource:      ":memory:",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		BusyTimeout:     5 * time.Second,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Driver == "" {
		return nil, fmt.Errorf("database driver cannot be empty")
	}
	if o.DataSource == "" {
		return nil, fmt.Errorf("database data source cannot be empty")
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 1
	}
	// Every connection to ":memory:" is its own database.
	if isSQLite(o.Driver) && isMemory(o.DataSource) {
		o.MaxOpenConns = 1
		o.MaxIdleConns = 1
		o.ConnMaxLifetime = 0
		o.ConnMaxIdleTime = 0
	}
	if err := o.ensureDir(); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := o.dataSource()

	var db *sql.DB
	var err error

	for i := 0; i < o.RetryAttempts; i++ {
		db, err = sql.Open(o.Driver, dsn)
		if err == nil {
			db.SetMaxOpenConns(o.MaxOpenConns)
			db.SetMaxIdleConns(o.MaxIdleConns)
			db.SetConnMaxLifetime(o.ConnMaxLifetime)
			db.SetConnMaxIdleTime(o.ConnMaxIdleTime)

			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}

			db.Close()
		}

		if i < o.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to connect to database: %w", ctx.Err())
			case <-time.After(time.Duration(i+1) * o.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", o.RetryAttempts, err)
}
