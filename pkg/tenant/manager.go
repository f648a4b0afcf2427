package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/auth"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/internal/platform"
	"github.com/ianzepp/monk-api/pkg/user"
)

// namePattern restricts tenant names (used as slugs / schema suffixes /
// file stems) to safe identifiers.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,62}$`)

// Manager owns the infrastructure namespace and provisions/deprovisions
// tenant namespaces on top of it (spec.md §4.1).
type Manager struct {
	Pool            *pgxpool.Pool
	DatabaseURL     string
	SQLite          *dbadapter.SQLiteFactory
	MigrationsDir   string // tenant seed migrations (postgres path)
	Logger          *slog.Logger
	DefaultDatabase string // physical database name for relational-shared tenants
}

// NewManager constructs a Manager. sqliteDir is the directory
// relational-file tenant databases are created under.
func NewManager(pool *pgxpool.Pool, databaseURL, migrationsDir, sqliteDir string, logger *slog.Logger) *Manager {
	return &Manager{
		Pool:            pool,
		DatabaseURL:     databaseURL,
		SQLite:          dbadapter.NewSQLiteFactory(sqliteDir),
		MigrationsDir:   migrationsDir,
		Logger:          logger,
		DefaultDatabase: "monk",
	}
}

// Initialize idempotently creates the infrastructure tables. Safe to
// call on every boot (spec.md §4.1's `initialize()`).
func (m *Manager) Initialize(databaseURL, globalMigrationsDir string) error {
	return platform.RunGlobalMigrations(databaseURL, globalMigrationsDir)
}

// CreateParams is the input to CreateTenant.
type CreateParams struct {
	Name          string
	DBType        DBType // defaults to DBTypeRelationalShared
	OwnerUsername string // defaults to "root"
	Description   string
}

// CreateResult is the output of CreateTenant: the registered Tenant and
// the ID of its owner User row (pkg/user.User).
type CreateResult struct {
	Tenant  *Tenant
	OwnerID uuid.UUID
}

// CreateTenant validates name, provisions the physical namespace,
// deploys the tenant schema, and registers the tenant (spec.md §4.1's
// five-step provisioning sequence). The steps do not share one
// transaction: each statement commits on its own, and a failure is
// undone only as far as rollbackNamespace goes.
func (m *Manager) CreateTenant(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if !namePattern.MatchString(p.Name) {
		return nil, apperr.Newf(apperr.CodeValidation, "invalid tenant name %q: must match %s", p.Name, namePattern.String())
	}
	dbType := p.DBType
	if dbType == "" {
		dbType = DBTypeRelationalShared
	}
	ownerUsername := p.OwnerUsername
	if ownerUsername == "" {
		ownerUsername = "root"
	}

	if existing, _ := m.GetTenant(ctx, p.Name); existing != nil {
		return nil, apperr.Newf(apperr.CodeTenantExists, "tenant %q already exists", p.Name)
	}

	var schema, database string
	switch dbType {
	case DBTypeRelationalShared:
		schema = SchemaName(p.Name)
		database = m.DefaultDatabase
	case DBTypeRelationalFile:
		schema = "main"
		database = p.Name
	default:
		return nil, apperr.Newf(apperr.CodeValidation, "unknown db_type %q", dbType)
	}

	ownerID, err := m.deployTenantSchema(ctx, dbType, database, schema, ownerUsername)
	if err != nil {
		return nil, err
	}

	t := &Tenant{
		ID:        uuid.New(),
		Name:      p.Name,
		DBType:    dbType,
		Database:  database,
		Schema:    schema,
		OwnerID:   ownerID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	const insert = `INSERT INTO tenants (id, name, db_type, database, schema, owner_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := m.Pool.Exec(ctx, insert, t.ID, t.Name, string(t.DBType), t.Database, t.Schema, t.OwnerID, t.IsActive, t.CreatedAt, t.UpdatedAt); err != nil {
		m.rollbackNamespace(ctx, dbType, database, schema)
		return nil, fmt.Errorf("registering tenant %s: %w", p.Name, err)
	}

	m.Logger.Info("tenant provisioned", "tenant_id", t.ID, "name", t.Name, "db_type", t.DBType, "schema", t.Schema)
	return &CreateResult{Tenant: t, OwnerID: ownerID}, nil
}

// deployTenantSchema runs the static seed script against a namespace
// and inserts the reserved root user plus the "/" FS tree root,
// returning the owner user's ID. It is also used standalone to graft a
// tenant into a namespace someone else created (spec.md §4.1).
func (m *Manager) deployTenantSchema(ctx context.Context, dbType DBType, database, schema, ownerUsername string) (ownerID uuid.UUID, err error) {
	switch dbType {
	case DBTypeRelationalShared:
		if _, execErr := m.Pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", sanitizeSchema(schema))); execErr != nil {
			return uuid.Nil, fmt.Errorf("creating schema %s: %w", schema, execErr)
		}
		tenantURL, urlErr := platform.WithSearchPath(m.DatabaseURL, schema)
		if urlErr != nil {
			m.rollbackNamespace(ctx, dbType, database, schema)
			return uuid.Nil, urlErr
		}
		if migErr := platform.RunTenantMigrations(tenantURL, m.MigrationsDir); migErr != nil {
			m.rollbackNamespace(ctx, dbType, database, schema)
			return uuid.Nil, fmt.Errorf("running tenant migrations: %w", migErr)
		}

		adapter, openErr := (&dbadapter.PostgresFactory{Pool: m.Pool}).Open(ctx, schema)
		if openErr != nil {
			m.rollbackNamespace(ctx, dbType, database, schema)
			return uuid.Nil, openErr
		}
		defer adapter.Close()
		return m.seedRootUserAndFS(ctx, adapter, ownerUsername, dbType, database, schema)

	case DBTypeRelationalFile:
		adapter, openErr := m.SQLite.Open(ctx, database)
		if openErr != nil {
			return uuid.Nil, fmt.Errorf("opening sqlite file for tenant %s: %w", database, openErr)
		}
		if _, execErr := adapter.Exec(ctx, sqliteSeedSQL); execErr != nil {
			return uuid.Nil, fmt.Errorf("running sqlite seed: %w", execErr)
		}
		return m.seedRootUserAndFS(ctx, adapter, ownerUsername, dbType, database, schema)

	default:
		return uuid.Nil, apperr.Newf(apperr.CodeValidation, "unknown db_type %q", dbType)
	}
}

// seedRootUserAndFS inserts the reserved zero-UUID root user, an
// additional owner user when ownerUsername != "root", and the "/" FS
// tree root (steps 3-4 of the provisioning sequence).
func (m *Manager) seedRootUserAndFS(ctx context.Context, adapter dbadapter.Adapter, ownerUsername string, dbType DBType, database, schema string) (uuid.UUID, error) {
	now := time.Now().UTC()
	users := user.NewStore(adapter)
	if _, err := users.CreateWithID(ctx, RootUserID, user.CreateRequest{Name: "root", Auth: "root", Access: auth.AccessRoot}); err != nil {
		m.rollbackNamespace(ctx, dbType, database, schema)
		return uuid.Nil, fmt.Errorf("seeding root user: %w", err)
	}

	ownerID := RootUserID
	if ownerUsername != "root" {
		ownerID = uuid.New()
		owner := user.CreateRequest{Name: ownerUsername, Auth: ownerUsername, Access: auth.AccessFull}
		if _, err := users.CreateWithID(ctx, ownerID, owner); err != nil {
			m.rollbackNamespace(ctx, dbType, database, schema)
			return uuid.Nil, fmt.Errorf("seeding owner user %s: %w", ownerUsername, err)
		}
	}

	const insertFS = `INSERT INTO fs (id, path, is_dir, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := adapter.Exec(ctx, rebind(adapter, insertFS), uuid.New(), "/", true, now, now); err != nil {
		m.rollbackNamespace(ctx, dbType, database, schema)
		return uuid.Nil, fmt.Errorf("seeding fs root: %w", err)
	}

	return ownerID, nil
}

// rebind rewrites $N placeholders to ? for SQLite, which does not
// understand Postgres-style positional parameters.
func rebind(adapter dbadapter.Adapter, query string) string {
	return dbadapter.Rebind(adapter, query)
}

// rollbackNamespace cleans up after a failure during
// deployTenantSchema/CreateTenant. For a relational-shared tenant it
// drops the created schema. For a relational-file tenant it drops
// nothing: the SQLite file is left on disk and a warning is logged
// (and failures opening or seeding that file do not call it at all).
func (m *Manager) rollbackNamespace(ctx context.Context, dbType DBType, database, schema string) {
	switch dbType {
	case DBTypeRelationalShared:
		if _, err := m.Pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", sanitizeSchema(schema))); err != nil {
			m.Logger.Error("rollback: dropping schema failed", "schema", schema, "error", err)
		}
	case DBTypeRelationalFile:
		m.Logger.Warn("rollback: relational-file tenant left on disk for manual cleanup", "database", database)
	}
}

// sanitizeSchema defends CREATE/DROP SCHEMA statements against
// injection; namePattern already constrains the tenant name this is
// derived from, so this is a second, narrower check on the literal
// schema identifier.
func sanitizeSchema(schema string) string {
	if !regexp.MustCompile(`^[a-z][a-z0-9_]*$`).MatchString(schema) {
		panic(fmt.Sprintf("dbadapter: unsafe schema identifier %q", schema))
	}
	return schema
}

// GetTenant looks up a non-deleted tenant by name; inactive tenants are
// returned too (callers check IsActive).
func (m *Manager) GetTenant(ctx context.Context, name string) (*Tenant, error) {
	const q = `SELECT id, name, db_type, database, schema, owner_id, is_active, created_at, updated_at, trashed_at, deleted_at
		FROM tenants WHERE name = $1 AND deleted_at IS NULL`
	row := m.Pool.QueryRow(ctx, q, name)
	t, err := scanTenant(row)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeTenantNotFound, fmt.Sprintf("tenant %q not found", name))
	}
	return t, nil
}

// ListTenants returns every non-deleted tenant.
func (m *Manager) ListTenants(ctx context.Context) ([]*Tenant, error) {
	const q = `SELECT id, name, db_type, database, schema, owner_id, is_active, created_at, updated_at, trashed_at, deleted_at
		FROM tenants WHERE deleted_at IS NULL ORDER BY created_at`
	rows, err := m.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTenant soft-deletes a tenant: physical storage is retained
// (spec.md §3's lifecycle note).
func (m *Manager) DeleteTenant(ctx context.Context, name string) error {
	const q = `UPDATE tenants SET deleted_at = now(), is_active = false, updated_at = now()
		WHERE name = $1 AND deleted_at IS NULL`
	tag, err := m.Pool.Exec(ctx, q, name)
	if err != nil {
		return fmt.Errorf("deleting tenant %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeTenantNotFound, "tenant %q not found", name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (*Tenant, error) {
	var t Tenant
	var dbType string
	if err := row.Scan(&t.ID, &t.Name, &dbType, &t.Database, &t.Schema, &t.OwnerID, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt, &t.TrashedAt, &t.DeletedAt); err != nil {
		return nil, err
	}
	t.DBType = DBType(dbType)
	return &t, nil
}
