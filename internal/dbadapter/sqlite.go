package dbadapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteFactory opens tenant-scoped adapters against one file per
// tenant (db_type=relational-file), each under Dir/<tenantRef>.db.
// Grounded on mind-engage-mindengage-lms's use of modernc.org/sqlite as
// a cgo-free, single-binary-friendly embedded driver; dialect surface
// kept identical to PostgresFactory so internal/httpapi's tenant
// resolution can select either by Tenant.DBType alone.
type SQLiteFactory struct {
	Dir string

	mu    sync.Mutex
	pools map[string]*sql.DB
}

func NewSQLiteFactory(dir string) *SQLiteFactory {
	return &SQLiteFactory{Dir: dir, pools: make(map[string]*sql.DB)}
}

// Open returns an Adapter for tenantRef's file, opening and caching the
// underlying *sql.DB on first use. Unlike Postgres there is no pooled
// connection to acquire per call; each tenant gets one *sql.DB for the
// process lifetime, since modernc.org/sqlite serializes writers anyway.
func (f *SQLiteFactory) Open(ctx context.Context, tenantRef string) (Adapter, error) {
	f.mu.Lock()
	db, ok := f.pools[tenantRef]
	f.mu.Unlock()
	if !ok {
		path := filepath.Join(f.Dir, tenantRef+".db")
		opened, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
		if err != nil {
			return nil, fmt.Errorf("opening sqlite file for tenant %s: %w", tenantRef, err)
		}
		opened.SetMaxOpenConns(1) // modernc.org/sqlite: one writer at a time
		if err := opened.PingContext(ctx); err != nil {
			opened.Close()
			return nil, fmt.Errorf("pinging sqlite file for tenant %s: %w", tenantRef, err)
		}
		f.mu.Lock()
		f.pools[tenantRef] = opened
		f.mu.Unlock()
		db = opened
	}
	return &sqliteAdapter{db: db}, nil
}

type sqliteQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqliteAdapter struct {
	db *sql.DB
}

func (a *sqliteAdapter) Dialect() Dialect { return DialectSQLite }

func (a *sqliteAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return queryWith(a.db, ctx, query, args...)
}

func (a *sqliteAdapter) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{row: a.db.QueryRowContext(ctx, query, args...)}
}

func (a *sqliteAdapter) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return execWith(a.db, ctx, query, args...)
}

func (a *sqliteAdapter) Begin(ctx context.Context) (Tx, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// Close is a no-op: the underlying *sql.DB is cached and shared across
// requests by SQLiteFactory, not owned by any single Adapter instance.
func (a *sqliteAdapter) Close() error { return nil }

func (a *sqliteAdapter) Ping(ctx context.Context) error { return a.db.PingContext(ctx) }

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return queryWith(t.tx, ctx, query, args...)
}

func (t *sqliteTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{row: t.tx.QueryRowContext(ctx, query, args...)}
}

func (t *sqliteTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return execWith(t.tx, ctx, query, args...)
}

func (t *sqliteTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

func queryWith(q sqliteQuerier, ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func execWith(q sqliteQuerier, ctx context.Context, query string, args ...any) (Result, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlResult{res}, nil
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                  { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error       { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error                  { return r.rows.Err() }
func (r *sqlRows) Close() error                { return r.rows.Close() }
func (r *sqlRows) Columns() ([]string, error)  { return r.rows.Columns() }

type sqlRow struct {
	row *sql.Row
}

func (r *sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type sqlResult struct {
	res sql.Result
}

func (r sqlResult) RowsAffected() int64 {
	n, err := r.res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
