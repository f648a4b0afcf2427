// Package platform wires the shared infrastructure clients: the global
// Postgres pool, the migration runner, and the Redis client backing
// cache invalidation.
package platform

import (
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunGlobalMigrations applies the infra-namespace migrations (tenants,
// tenant_fixtures) to the public schema.
func RunGlobalMigrations(databaseURL, migrationsDir string) error {
	return runMigrations(databaseURL, migrationsDir)
}

// RunTenantMigrations applies the static per-tenant seed migration (the
// seven core tables: models, fields, users, filters, credentials,
// tracked, fs) to a schema whose search_path has already been pinned to
// the new tenant (see WithSearchPath).
func RunTenantMigrations(databaseURL, migrationsDir string) error {
	return runMigrations(databaseURL, migrationsDir)
}

func runMigrations(databaseURL, migrationsDir string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsDir), databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// WithSearchPath appends search_path=<schema> to a Postgres connection
// URL, the same trick the tenant provisioner uses to scope
// golang-migrate's own connection to a single tenant's schema.
func WithSearchPath(databaseURL, schema string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
