// Package tenant implements the tenant & infrastructure manager
// (spec.md §4.1): it owns the infrastructure namespace (the `tenants`
// and `tenant_fixtures` tables) and provisions/deprovisions the N
// tenant namespaces layered on top of it.
package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DBType selects which physical storage a tenant's namespace lives in.
type DBType string

const (
	// DBTypeRelationalShared is schema-per-tenant inside one shared
	// Postgres database.
	DBTypeRelationalShared DBType = "relational-shared"
	// DBTypeRelationalFile is database-per-tenant, one SQLite file
	// per tenant.
	DBTypeRelationalFile DBType = "relational-file"
)

// RootUserID is the well-known zero UUID reserved for every tenant's
// root user (spec.md §3).
var RootUserID = uuid.Nil

// Tenant is the infrastructure-namespace record for one isolated
// namespace (spec.md §3's Tenant attributes).
type Tenant struct {
	ID        uuid.UUID
	Name      string // globally-unique slug among active tenants
	DBType    DBType
	Database  string // physical database name
	Schema    string // namespace inside that database
	OwnerID   uuid.UUID
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	TrashedAt *time.Time
	DeletedAt *time.Time
}

type contextKey int

const tenantContextKey contextKey = iota

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey, t)
}

// FromContext extracts the Tenant attached to ctx, if any.
func FromContext(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantContextKey).(*Tenant)
	return t
}

// SchemaName returns the Postgres schema name used for a
// relational-shared tenant's slug.
func SchemaName(slug string) string {
	return "tenant_" + slug
}
