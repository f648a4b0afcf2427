package record

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/filter"
	"github.com/ianzepp/monk-api/pkg/schema"
)

// Pipeline is the record pipeline (spec.md §4.4): the single write path
// shared by every surface. Every batch operation opens exactly one
// dbadapter.Tx, performs its statement (create, update and delete also
// run pre-phase observers before it and post-phase observers after it;
// revert and access run no observers), then commits — or rolls back the whole
// batch on the first error, so partial success is never observable
// (spec.md §7: "no record in that batch is visible to later reads").
type Pipeline struct {
	registry  *schema.Registry
	observers *ObserverRegistry
	logger    *slog.Logger
}

// NewPipeline builds a Pipeline over a schema Registry and an Observer
// Registry (pre-populated by the caller with history/cache-invalidation
// observers; see NewHistoryObserver/NewInvalidationObserver).
func NewPipeline(registry *schema.Registry, observers *ObserverRegistry, logger *slog.Logger) *Pipeline {
	return &Pipeline{registry: registry, observers: observers, logger: logger}
}

// resolveReadSchema resolves a Model's Schema for a pure read (SelectAny/
// Select404). System Models are readable through the public surface
// (spec.md §3: "read-only through the public surface"; §8 testable
// property 3: only non-read operations are blocked), so this never
// calls schema.RequireNotSystem.
func (p *Pipeline) resolveReadSchema(ctx context.Context, tenantID, modelName string, adapter dbadapter.Adapter) (schema.Schema, error) {
	return p.registry.ToSchema(ctx, tenantID, modelName, adapter)
}

// resolveWriteSchema resolves a Model's Schema for a mutating operation
// (create/update/delete/revert/access), rejecting system Models for
// non-root callers (spec.md §4.2).
func (p *Pipeline) resolveWriteSchema(ctx context.Context, tenantID, modelName string, adapter dbadapter.Adapter, sudo bool) (schema.Schema, error) {
	s, err := p.registry.ToSchema(ctx, tenantID, modelName, adapter)
	if err != nil {
		return schema.Schema{}, err
	}
	if err := schema.RequireNotSystem(s, sudo); err != nil {
		return schema.Schema{}, err
	}
	return s, nil
}

// withTx runs fn inside a freshly begun transaction, committing on
// success and rolling back on any error (including a panic-free early
// return) — the one-transaction-per-batch rule (spec.md §5).
func withTx(ctx context.Context, adapter dbadapter.Adapter, fn func(tx dbadapter.Tx) error) error {
	tx, err := adapter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanRows(rows dbadapter.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		m, err := dbadapter.ScanMap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Record(m))
	}
	return out, rows.Err()
}

// CreateAll validates, defaults, and inserts every payload in one
// transactional batch (spec.md §4.4's `createAll`).
func (p *Pipeline) CreateAll(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, payloads []map[string]any, sudo bool) ([]Record, error) {
	s, err := p.resolveWriteSchema(ctx, tenantID, modelName, adapter, sudo)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	records := make([]Record, 0, len(payloads))
	for _, payload := range payloads {
		if err := s.ValidateOrThrow(payload); err != nil {
			return nil, err
		}
		rec := Record{}
		for k, v := range payload {
			rec[k] = v
		}
		rec["id"] = uuid.New()
		rec["created_at"] = now
		rec["updated_at"] = now
		rec["trashed_at"] = nil
		rec["deleted_at"] = nil
		applyACLDefaults(rec)
		records = append(records, rec)
	}

	var result []Record
	err = withTx(ctx, adapter, func(tx dbadapter.Tx) error {
		batch := &Batch{ModelName: modelName, Phase: PhaseCreatePre, Tx: tx, Records: records, Schema: s, Dialect: adapter.Dialect()}
		if err := p.observers.Run(ctx, batch); err != nil {
			return err
		}

		query, args, err := buildInsertSQL(s, records)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, dbadapter.Rebind(adapter, query), args...)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "inserting records")
		}
		inserted, err := scanRows(rows)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "reading inserted records")
		}

		postBatch := &Batch{ModelName: modelName, Phase: PhaseCreatePost, Tx: tx, Records: inserted, Schema: s, Dialect: adapter.Dialect()}
		if err := p.observers.Run(ctx, postBatch); err != nil {
			return err
		}
		result = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SelectAny is a pure read through the filter engine (spec.md §4.4's
// `selectAny`); it never opens a transaction.
func (p *Pipeline) SelectAny(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, doc filter.Document, sudo bool) ([]Record, error) {
	s, err := p.resolveReadSchema(ctx, tenantID, modelName, adapter)
	if err != nil {
		return nil, err
	}
	query, args, err := buildSelectSQL(s, doc)
	if err != nil {
		return nil, err
	}
	rows, err := adapter.Query(ctx, dbadapter.Rebind(adapter, query), args...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "selecting records")
	}
	return scanRows(rows)
}

// Select404 is SelectAny raising RECORD_NOT_FOUND on an empty result
// (spec.md §4.4's `select404`).
func (p *Pipeline) Select404(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, doc filter.Document, sudo bool, notFoundMsg string) (Record, error) {
	recs, err := p.SelectAny(ctx, adapter, tenantID, modelName, doc, sudo)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		if notFoundMsg == "" {
			notFoundMsg = fmt.Sprintf("no %s record matched the given filter", modelName)
		}
		return nil, apperr.New(apperr.CodeNotFound, notFoundMsg)
	}
	return recs[0], nil
}

// Update is one {id, changes} entry for UpdateAll.
type Update struct {
	ID      uuid.UUID
	Changes map[string]any
}

// UpdateAll fetches, validates, and updates each row, rejecting the
// whole batch if any target row is trashed or deleted (spec.md §4.4's
// `updateAll`).
func (p *Pipeline) UpdateAll(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, updates []Update, sudo bool) ([]Record, error) {
	s, err := p.resolveWriteSchema(ctx, tenantID, modelName, adapter, sudo)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}

	var result []Record
	err = withTx(ctx, adapter, func(tx dbadapter.Tx) error {
		query, args, err := buildSelectByIDsSQL(modelName, ids)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, dbadapter.Rebind(adapter, query), args...)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "fetching records to update")
		}
		existing, err := scanRows(rows)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "reading records to update")
		}
		before := make(map[string]Record, len(existing))
		for _, rec := range existing {
			before[rec.ID()] = rec
		}
		if len(existing) != len(updates) {
			return apperr.New(apperr.CodeNotFound, "one or more records to update were not found")
		}
		for _, rec := range existing {
			if rec.IsDeleted() {
				return apperr.Newf(apperr.CodeDeletedRecord, "record %s has been deleted", rec.ID())
			}
			if rec.IsTrashed() {
				return apperr.Newf(apperr.CodeTrashedRecord, "record %s is trashed", rec.ID())
			}
		}

		now := nowUTC()
		var merged []Record
		for _, u := range updates {
			old := before[u.ID.String()]
			payload := map[string]any{}
			for k, v := range old {
				if IsBaseColumn(k) {
					continue
				}
				payload[k] = v
			}
			for k, v := range u.Changes {
				if IsBaseColumn(k) {
					continue
				}
				payload[k] = v
			}
			if err := s.ValidateOrThrow(payload); err != nil {
				return err
			}
			mergedRec := Record{}
			for k, v := range old {
				mergedRec[k] = v
			}
			for k, v := range payload {
				mergedRec[k] = v
			}
			mergedRec["updated_at"] = now
			merged = append(merged, mergedRec)
		}

		preBatch := &Batch{ModelName: modelName, Phase: PhaseUpdatePre, Tx: tx, Records: merged, Before: before, Schema: s, Dialect: adapter.Dialect()}
		if err := p.observers.Run(ctx, preBatch); err != nil {
			return err
		}

		var updated []Record
		for i, u := range updates {
			payload := map[string]any{}
			for k, v := range merged[i] {
				if !IsBaseColumn(k) {
					payload[k] = v
				}
			}
			query, args, err := buildUpdateSQL(modelName, u.ID, payload, now)
			if err != nil {
				return err
			}
			rows, err := tx.Query(ctx, dbadapter.Rebind(adapter, query), args...)
			if err != nil {
				return apperr.Wrap(err, apperr.CodeInternal, "updating record")
			}
			recs, err := scanRows(rows)
			if err != nil {
				return apperr.Wrap(err, apperr.CodeInternal, "reading updated record")
			}
			if len(recs) != 1 {
				return apperr.Newf(apperr.CodeNotFound, "record %s not found during update", u.ID)
			}
			updated = append(updated, recs[0])
		}

		postBatch := &Batch{ModelName: modelName, Phase: PhaseUpdatePost, Tx: tx, Records: updated, Before: before, Schema: s, Dialect: adapter.Dialect()}
		if err := p.observers.Run(ctx, postBatch); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateAny is selectAny then updateAll (spec.md §4.4's `updateAny`).
func (p *Pipeline) UpdateAny(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, doc filter.Document, changes map[string]any, sudo bool) ([]Record, error) {
	matches, err := p.SelectAny(ctx, adapter, tenantID, modelName, doc, sudo)
	if err != nil {
		return nil, err
	}
	updates := make([]Update, len(matches))
	for i, m := range matches {
		id, err := uuid.Parse(m.ID())
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "parsing matched record id")
		}
		updates[i] = Update{ID: id, Changes: changes}
	}
	return p.UpdateAll(ctx, adapter, tenantID, modelName, updates, sudo)
}

// DeleteAll soft-deletes the given ids in one statement, raising
// ALREADY_TRASHED if fewer rows matched than requested (spec.md §4.4's
// `deleteAll`).
func (p *Pipeline) DeleteAll(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, ids []uuid.UUID, sudo bool) ([]Record, error) {
	s, err := p.resolveWriteSchema(ctx, tenantID, modelName, adapter, sudo)
	if err != nil {
		return nil, err
	}

	var result []Record
	err = withTx(ctx, adapter, func(tx dbadapter.Tx) error {
		selectQuery, selectArgs, err := buildSelectByIDsSQL(modelName, ids)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, dbadapter.Rebind(adapter, selectQuery), selectArgs...)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "fetching records to delete")
		}
		before, err := scanRows(rows)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "reading records to delete")
		}
		beforeByID := make(map[string]Record, len(before))
		for _, rec := range before {
			beforeByID[rec.ID()] = rec
		}

		preBatch := &Batch{ModelName: modelName, Phase: PhaseDeletePre, Tx: tx, Records: before, Before: beforeByID, Schema: s, Dialect: adapter.Dialect()}
		if err := p.observers.Run(ctx, preBatch); err != nil {
			return err
		}

		now := nowUTC()
		query, args, err := buildSoftDeleteSQL(modelName, ids, now)
		if err != nil {
			return err
		}
		delRows, err := tx.Query(ctx, dbadapter.Rebind(adapter, query), args...)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "soft-deleting records")
		}
		deleted, err := scanRows(delRows)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "reading soft-deleted records")
		}
		if len(deleted) != len(ids) {
			return apperr.New(apperr.CodeAlreadyTrashed, "one or more records were already trashed")
		}

		postBatch := &Batch{ModelName: modelName, Phase: PhaseDeletePost, Tx: tx, Records: deleted, Before: beforeByID, Schema: s, Dialect: adapter.Dialect()}
		if err := p.observers.Run(ctx, postBatch); err != nil {
			return err
		}
		result = deleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevertAll clears trashed_at for the given ids, refusing any id whose
// trashed_at is already null (spec.md §4.4's `revertAll`; the caller
// must already have checked options.include_trashed was set).
func (p *Pipeline) RevertAll(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, ids []uuid.UUID, sudo bool) ([]Record, error) {
	if _, err := p.resolveWriteSchema(ctx, tenantID, modelName, adapter, sudo); err != nil {
		return nil, err
	}
	var result []Record
	err := withTx(ctx, adapter, func(tx dbadapter.Tx) error {
		now := nowUTC()
		query, args, err := buildRevertSQL(modelName, ids, now)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, dbadapter.Rebind(adapter, query), args...)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "reverting records")
		}
		reverted, err := scanRows(rows)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "reading reverted records")
		}
		if len(reverted) != len(ids) {
			return apperr.New(apperr.CodeConflict, "one or more records were not trashed")
		}
		result = reverted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AccessChange is one record's restricted ACL-column update.
type AccessChange struct {
	ID     uuid.UUID
	Access map[string][]uuid.UUID
}

// AccessAll restricts the update to access_read/edit/full/deny columns
// only (spec.md §4.4's `accessAll`); any other field the caller sent is
// simply never considered here.
func (p *Pipeline) AccessAll(ctx context.Context, adapter dbadapter.Adapter, tenantID, modelName string, changes []AccessChange, sudo bool) ([]Record, error) {
	if _, err := p.resolveWriteSchema(ctx, tenantID, modelName, adapter, sudo); err != nil {
		return nil, err
	}
	var result []Record
	err := withTx(ctx, adapter, func(tx dbadapter.Tx) error {
		now := nowUTC()
		var updated []Record
		for _, c := range changes {
			query, args, err := buildAccessSQL(modelName, c.ID, c.Access, now)
			if err != nil {
				return err
			}
			rows, err := tx.Query(ctx, dbadapter.Rebind(adapter, query), args...)
			if err != nil {
				return apperr.Wrap(err, apperr.CodeInternal, "updating record access")
			}
			recs, err := scanRows(rows)
			if err != nil {
				return apperr.Wrap(err, apperr.CodeInternal, "reading access-updated record")
			}
			if len(recs) != 1 {
				return apperr.Newf(apperr.CodeNotFound, "record %s not found", c.ID)
			}
			updated = append(updated, recs[0])
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyACLDefaults sets empty access arrays for any access_* column the
// caller's payload did not already supply.
func applyACLDefaults(rec Record) {
	for _, col := range []string{"access_read", "access_edit", "access_full", "access_deny"} {
		if _, ok := rec[col]; !ok {
			rec[col] = []uuid.UUID{}
		}
	}
}
