// Package dbadapter is the single place that touches dialect-specific
// SQL (spec.md §4.5). Everything above this package — the schema
// registry, the filter lowerer, the record pipeline — talks to the
// Adapter interface only, so a Postgres-backed tenant (db_type
// relational-shared, one schema per tenant) and a SQLite-backed tenant
// (db_type relational-file, one file per tenant) are interchangeable
// from the caller's point of view.
package dbadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Dialect identifies which concrete driver an Adapter wraps. Callers
// occasionally need this to pick dialect-appropriate DDL fragments
// (pkg/schema does, for example, since column types don't line up
// 1:1 between Postgres and SQLite).
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNoRows is returned by Row.Scan when a query expected to produce
// exactly one row produced none. Both driver implementations normalize
// their native "no rows" sentinel (pgx.ErrNoRows, sql.ErrNoRows) to this.
var ErrNoRows = errors.New("dbadapter: no rows in result set")

// Row is a single-row query result, satisfied by both *pgx.Row and
// *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a multi-row query result cursor. Columns is used by the
// record pipeline, which scans into a dynamic map[string]any rather
// than fixed struct fields since a Model's column set is only known at
// runtime.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Result reports how many rows a statement affected.
type Result interface {
	RowsAffected() int64
}

// Querier is the narrow read/write surface shared by Adapter and Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) (Result, error)
}

// Tx is a single database transaction. All record-pipeline batch
// operations (spec.md §4.4) run inside exactly one Tx per request.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Adapter is a connection to one tenant's storage: either a Postgres
// pool scoped to that tenant's schema, or a SQLite file opened for that
// tenant alone.
type Adapter interface {
	Querier
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	Close() error

	// Ping verifies the underlying connection is reachable.
	Ping(ctx context.Context) error
}

// Factory constructs tenant-scoped Adapters on demand. internal/httpapi's
// tenant-resolving middleware holds one Factory per db_type and calls
// it once per request (Postgres: a
// pooled connection with search_path set; SQLite: an opened/cached
// *sql.DB for the tenant's file).
type Factory interface {
	Open(ctx context.Context, tenantRef string) (Adapter, error)
}

// ScanMap reads the current row of rows into a column-name-keyed map,
// the shape the record pipeline works in since a Model's columns are
// only known at runtime (unlike a fixed-shape struct scan).
func ScanMap(rows Rows) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading column names: %w", err)
	}
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(cols))
	for i, c := range cols {
		out[c] = dest[i]
	}
	return out, nil
}

// Rebind rewrites Postgres-style "$1".."$9" positional placeholders to
// SQLite's "?" for a SQLite-dialect adapter; Postgres adapters get the
// query back unchanged. Every store in this module writes queries in
// Postgres placeholder syntax and calls Rebind once before executing,
// rather than hand-rolling dialect branches per call site.
func Rebind(adapter Adapter, query string) string {
	return RebindDialect(adapter.Dialect(), query)
}

// RebindDialect is Rebind for callers (the record pipeline's
// transaction-scoped code, mainly) that only have a Dialect in hand
// rather than a full Adapter — a dbadapter.Tx doesn't expose Dialect()
// since both driver Tx implementations are otherwise symmetric.
func RebindDialect(dialect Dialect, query string) string {
	if dialect != DialectSQLite {
		return query
	}
	out := query
	for i := 9; i >= 1; i-- {
		out = strings.ReplaceAll(out, fmt.Sprintf("$%d", i), "?")
	}
	return out
}
