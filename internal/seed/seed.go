// Package seed provisions the "acme" development tenant and a small set
// of demo Models/records for local development and smoke-testing.
// Grounded on the teacher's internal/seed.Run (idempotent acme
// provisioning, logged step-by-step) and internal/seed.RunDemo (richer,
// destructive re-seed for demo environments); generalized from the
// teacher's fixed incident/service domain rows to this module's dynamic
// Model/Field metadata plus a couple of sample records created through
// the record pipeline, the same path the HTTP surface uses.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/record"
	"github.com/ianzepp/monk-api/pkg/schema"
	"github.com/ianzepp/monk-api/pkg/tenant"
)

// DevTenantName is the slug of the idempotently-provisioned development
// tenant (spec.md §3's tenant-name uniqueness rule makes this safe to
// call repeatedly).
const DevTenantName = "acme"

// Run provisions DevTenantName if it does not already exist and seeds a
// "tasks" demo Model with a few sample records. It is idempotent: if
// the tenant already exists it logs and returns nil, matching the
// teacher's seed.Run contract.
func Run(ctx context.Context, manager *tenant.Manager, postgres *dbadapter.PostgresFactory, logger *slog.Logger) error {
	if existing, err := manager.GetTenant(ctx, DevTenantName); err == nil && existing != nil {
		logger.Info("seed: tenant already exists, skipping", "tenant", DevTenantName)
		return nil
	}

	result, err := manager.CreateTenant(ctx, tenant.CreateParams{
		Name:        DevTenantName,
		DBType:      tenant.DBTypeRelationalShared,
		Description: "Seeded development tenant",
	})
	if err != nil {
		return fmt.Errorf("provisioning seed tenant: %w", err)
	}
	logger.Info("seed: provisioned tenant", "tenant_id", result.Tenant.ID, "name", result.Tenant.Name)

	adapter, err := postgres.Open(ctx, result.Tenant.Schema)
	if err != nil {
		return fmt.Errorf("opening seed tenant storage: %w", err)
	}
	defer adapter.Close()

	if err := seedTasksModel(ctx, adapter, result.Tenant.ID.String(), logger); err != nil {
		return fmt.Errorf("seeding tasks model: %w", err)
	}

	logger.Info("seed: completed successfully", "tenant", DevTenantName)
	return nil
}

// seedTasksModel creates a demo "tasks" Model (two text fields, one
// tracked boolean) the same way POST /api/describe/:model does: insert
// pending metadata, render CREATE TABLE, activate.
func seedTasksModel(ctx context.Context, adapter dbadapter.Adapter, tenantID string, logger *slog.Logger) error {
	model, err := schema.InsertModel(ctx, adapter, schema.CreateModelRequest{
		ModelName:   "tasks",
		Description: "Demo task tracking model",
	})
	if err != nil {
		return err
	}

	fields := []schema.Field{
		{ModelName: "tasks", FieldName: "title", Type: schema.FieldText, Required: true, Searchable: true},
		{ModelName: "tasks", FieldName: "notes", Type: schema.FieldText},
		{ModelName: "tasks", FieldName: "done", Type: schema.FieldBoolean, Tracked: true, Default: strPtr("false")},
	}
	for _, f := range fields {
		if _, err := schema.InsertField(ctx, adapter, f); err != nil {
			return fmt.Errorf("inserting field %s: %w", f.FieldName, err)
		}
	}

	ddl, err := schema.CreateTableDDL(model, fields, adapter.Dialect())
	if err != nil {
		return err
	}
	if _, err := adapter.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating tasks table: %w", err)
	}
	if err := schema.ActivateModel(ctx, adapter, "tasks"); err != nil {
		return err
	}
	logger.Info("seed: created model", "model", "tasks")

	registry := schema.NewRegistry(0, false)
	observers := record.NewObserverRegistry()
	pipeline := record.NewPipeline(registry, observers, logger)

	sample := []map[string]any{
		{"title": "Write onboarding docs", "notes": "cover the describe/data/find surfaces", "done": false},
		{"title": "Wire up metrics dashboards", "notes": "", "done": false},
	}
	if _, err := pipeline.CreateAll(ctx, adapter, tenantID, "tasks", sample, true); err != nil {
		return fmt.Errorf("seeding sample tasks: %w", err)
	}
	logger.Info("seed: created sample records", "model", "tasks", "count", len(sample))
	return nil
}

func strPtr(s string) *string { return &s }
