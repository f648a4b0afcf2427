package dbadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFactory opens tenant-scoped adapters against a single shared
// pgxpool.Pool, one Postgres schema per tenant (db_type=relational-shared).
// Grounded on the teacher's pgxpool.Pool + search_path pattern
// (internal/app.go's pool construction, pkg/tenant.Provisioner).
type PostgresFactory struct {
	Pool *pgxpool.Pool
}

func NewPostgresFactory(pool *pgxpool.Pool) *PostgresFactory {
	return &PostgresFactory{Pool: pool}
}

// Open acquires a pooled connection and pins its search_path to the
// tenant's schema for the lifetime of the returned Adapter.
func (f *PostgresFactory) Open(ctx context.Context, schema string) (Adapter, error) {
	conn, err := f.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring pool connection: %w", err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf(`SET search_path = %s, public`, pgx.Identifier{schema}.Sanitize())); err != nil {
		conn.Release()
		return nil, fmt.Errorf("setting search_path to %s: %w", schema, err)
	}
	return &postgresAdapter{conn: conn}, nil
}

type postgresAdapter struct {
	conn *pgxpool.Conn
}

func (a *postgresAdapter) Dialect() Dialect { return DialectPostgres }

func (a *postgresAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := a.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (a *postgresAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return &pgxRow{row: a.conn.QueryRow(ctx, sql, args...)}
}

func (a *postgresAdapter) Exec(ctx context.Context, sql string, args ...any) (Result, error) {
	tag, err := a.conn.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxResult{tag}, nil
}

func (a *postgresAdapter) Begin(ctx context.Context) (Tx, error) {
	tx, err := a.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx}, nil
}

func (a *postgresAdapter) Close() error {
	a.conn.Release()
	return nil
}

func (a *postgresAdapter) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (t *postgresTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return &pgxRow{row: t.tx.QueryRow(ctx, sql, args...)}
}

func (t *postgresTx) Exec(ctx context.Context, sql string, args ...any) (Result, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxResult{tag}, nil
}

func (t *postgresTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *postgresTx) Rollback(ctx context.Context) error  { return t.tx.Rollback(ctx) }

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Err() error             { return r.rows.Err() }
func (r *pgxRows) Close() error           { r.rows.Close(); return nil }

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name
	}
	return out, nil
}

type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type pgxResult struct {
	tag pgconn.CommandTag
}

func (r pgxResult) RowsAffected() int64 { return r.tag.RowsAffected() }
