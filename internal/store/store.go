// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package store persists the pair table and run records in a SQL database.
//
// Three drivers are supported through database/sql: DuckDB (the default, a
// single local file), Postgres, and SQLite. The schema uses portable column
// types; dates and timestamps are stored as ISO-8601 text so every dialect
// orders and scans them the same way.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	_ "github.com/lib/pq"              // Postgres driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/tomtom215/eventbnb/internal/logging"
)

// Dialect names a supported database driver.
type Dialect string

const (
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// Lookup limits.
const (
	DefaultTopMatches = 5
	MaxTopMatches     = 50
)

// ErrNotFound is returned when a lookup has no rows.
var ErrNotFound = errors.New("store: not found")

// ParseDialect validates a configured driver name. Empty selects DuckDB.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectDuckDB:
		return DialectDuckDB, nil
	case DialectPostgres, "postgresql", "pq":
		return DialectPostgres, nil
	case DialectSQLite, "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("store: unsupported driver %q (want duckdb, postgres or sqlite3)", s)
	}
}

// Store reads and writes the pair table.
type Store struct {
	db      *sql.DB
	dialect Dialect
	owned   bool
}

// Open connects to the database and verifies the connection. For file-based
// dialects the parent directory of dsn is created when missing.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	connStr := dsn
	switch dialect {
	case DialectDuckDB:
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
		if dsn != "" && !strings.Contains(dsn, "?") {
			connStr = dsn + "?autoinstall_known_extensions=false&autoload_known_extensions=false"
		}
	case DialectSQLite:
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
	case DialectPostgres:
		if dsn == "" {
			return nil, errors.New("store: postgres requires a DSN")
		}
	default:
		return nil, fmt.Errorf("store: unsupported dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	switch dialect {
	case DialectPostgres:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	case DialectSQLite:
		// A single connection keeps ":memory:" databases alive and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	logging.Debug().Str("driver", string(dialect)).Msg("Connected to pair store")
	s := New(db, dialect)
	s.owned = true
	return s, nil
}

// New wraps an open connection. Close leaves db open.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites '?' placeholders for the store's dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// timestampLayout is fixed-width so text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
