package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // register the pure-Go sqlite driver
)

// Dialect identifies the SQL flavour of the jobs database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// JobsConfig selects the jobs database backend.
type JobsConfig struct {
	Type        string
	SQLitePath  string
	PostgresURL string
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites '?' placeholders into the dialect's syntax.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OpenJobsDB opens the job listings database: a SQLite file by default or
// Postgres when cfg.Type is "postgres".
func OpenJobsDB(ctx context.Context, cfg JobsConfig, opts Options) (*sql.DB, Dialect, error) {
	if strings.EqualFold(cfg.Type, string(DialectPostgres)) {
		if strings.TrimSpace(cfg.PostgresURL) == "" {
			return nil, "", fmt.Errorf("jobs database url is empty")
		}
		conn, err := connect(ctx, "pgx", cfg.PostgresURL, opts)
		if err != nil {
			return nil, "", fmt.Errorf("opening jobs postgres db: %w", err)
		}
		return conn, DialectPostgres, nil
	}

	path := strings.TrimSpace(cfg.SQLitePath)
	if path == "" {
		return nil, "", fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("creating sqlite dir: %w", err)
		}
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	conn, err := connect(ctx, "sqlite", path+"?_pragma=busy_timeout(5000)", opts)
	if err != nil {
		return nil, "", fmt.Errorf("opening sqlite db: %w", err)
	}
	return conn, DialectSQLite, nil
}
