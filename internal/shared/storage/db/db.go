// Package db opens the application's SQL pools: the Postgres store for
// users, documents, reports and conversations, and the jobs database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"career-hub/internal/shared/telemetry"
)

// Options tunes a connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

const defaultPingTimeout = 5 * time.Second

var openDB = sql.Open

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions keeps the pool tiny; every concurrent Lambda instance
// holds its own.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     defaultPingTimeout,
	}
}

// DefaultMigrateOptions is for one-shot commands: migrations, imports and the CLI.
func DefaultMigrateOptions() Options {
	opts := DefaultServerOptions()
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return opts
}

// OptionsFromEnv applies DB_* overrides on top of defaults. Unparseable
// values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	ints := []struct {
		key string
		dst *int
	}{
		{"DB_MAX_OPEN_CONNS", &opts.MaxOpenConns},
		{"DB_MAX_IDLE_CONNS", &opts.MaxIdleConns},
	}
	for _, o := range ints {
		if v, ok := envValue(o.key, strconv.Atoi); ok {
			*o.dst = v
		}
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", &opts.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", &opts.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", &opts.PingTimeout},
	}
	for _, o := range durations {
		if v, ok := envValue(o.key, time.ParseDuration); ok {
			*o.dst = v
		}
	}
	return opts
}

// Connect opens and pings a Postgres pool for DATABASE_URL.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	return connect(ctx, "pgx", databaseURL, opts)
}

func connect(ctx context.Context, driverName, dsn string, opts Options) (*sql.DB, error) {
	pool, err := openDB(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}
	configurePool(pool, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s database: %w", driverName, err)
	}

	stats := pool.Stats()
	telemetry.Info("db.pool.ready", map[string]any{
		"driver":   driverName,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
		"max_open": stats.MaxOpenConnections,
	})
	return pool, nil
}

// sharedPool hands out one *sql.DB per process. Concurrent callers wait for
// the first connect; a failed connect is retried by the next caller.
type sharedPool struct {
	mu         sync.Mutex
	ready      *sync.Cond
	db         *sql.DB
	connecting bool
}

func newSharedPool() *sharedPool {
	p := &sharedPool{}
	p.ready = sync.NewCond(&p.mu)
	return p
}

var shared = newSharedPool()

func (p *sharedPool) get(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	p.mu.Lock()
	for p.connecting && p.db == nil {
		p.ready.Wait()
	}
	if p.db != nil {
		pool := p.db
		p.mu.Unlock()
		return pool, nil
	}
	p.connecting = true
	p.mu.Unlock()

	pool, err := Connect(ctx, databaseURL, opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.connecting = false
	if err == nil {
		p.db = pool
	}
	p.ready.Broadcast()
	return pool, err
}

func (p *sharedPool) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.db = nil
	p.connecting = false
}

// GetSingleton returns the process-wide Postgres pool, connecting on first
// use. Warm Lambda invocations reuse it.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	pool, err := shared.get(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func configurePool(pool *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func envValue[T any](key string, parse func(string) (T, error)) (T, bool) {
	var zero T
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return zero, false
	}
	v, err := parse(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "error": err})
		return zero, false
	}
	return v, true
}
