package record

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/auth"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/schema"
)

// Operation is the kind of write a Change entry records.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// FieldDiff is the {old, new} shape a Change's changes column holds per
// tracked field (spec.md §3's Change entity).
type FieldDiff struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// HistoryObserver is the post-phase observer that writes a Change row
// per affected record whenever the Model has at least one `tracked=true`
// Field (spec.md §4.4: "History — if any Field on the Model has
// tracked=true, emit a Change entry..."). Grounded on the teacher's
// pkg/incident.Service diff-and-CreateHistory shape
// (computeDiff/CreateHistory in service.go), generalized from one
// hardcoded field list to whichever fields a Model marks tracked.
type HistoryObserver struct{}

// NewHistoryObserver builds the tracked-field history observer. Register
// it against "*" for post-create/post-update/post-delete so every Model
// gets history coverage without per-model registration.
func NewHistoryObserver() *HistoryObserver { return &HistoryObserver{} }

func (h *HistoryObserver) Run(ctx context.Context, batch *Batch) error {
	trackedFields := trackedFieldNames(batch.Schema)
	if len(trackedFields) == 0 {
		return nil
	}

	op, ok := operationFor(batch.Phase)
	if !ok {
		return nil
	}

	actor := actorID(ctx)
	for _, rec := range batch.Records {
		var diff map[string]FieldDiff
		if op == OpUpdate {
			old := batch.Before[rec.ID()]
			diff = diffTracked(old, rec, trackedFields)
			if len(diff) == 0 {
				continue
			}
		} else {
			diff = snapshotTracked(rec, trackedFields)
		}

		payload, err := json.Marshal(diff)
		if err != nil {
			return fmt.Errorf("marshaling change diff: %w", err)
		}

		if err := insertChange(ctx, batch.Tx, batch.Dialect, batch.ModelName, rec.ID(), op, payload, actor); err != nil {
			return err
		}
	}
	return nil
}

func operationFor(phase Phase) (Operation, bool) {
	switch phase {
	case PhaseCreatePost:
		return OpCreate, true
	case PhaseUpdatePost:
		return OpUpdate, true
	case PhaseDeletePost:
		return OpDelete, true
	default:
		return "", false
	}
}

func trackedFieldNames(s schema.Schema) []string {
	var out []string
	for _, f := range s.Fields {
		if f.Tracked {
			out = append(out, f.FieldName)
		}
	}
	return out
}

func diffTracked(old, updated Record, fields []string) map[string]FieldDiff {
	diff := make(map[string]FieldDiff)
	for _, f := range fields {
		if !reflect.DeepEqual(old[f], updated[f]) {
			diff[f] = FieldDiff{Old: old[f], New: updated[f]}
		}
	}
	return diff
}

func snapshotTracked(rec Record, fields []string) map[string]FieldDiff {
	diff := make(map[string]FieldDiff)
	for _, f := range fields {
		diff[f] = FieldDiff{Old: nil, New: rec[f]}
	}
	return diff
}

func actorID(ctx context.Context) uuid.UUID {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return uuid.Nil
	}
	actor, err := uuid.Parse(id.UserID)
	if err != nil {
		return uuid.Nil
	}
	return actor
}

func insertChange(ctx context.Context, tx dbadapter.Tx, dialect dbadapter.Dialect, modelName, recordID string, op Operation, changes []byte, actor uuid.UUID) error {
	query := `INSERT INTO tracked (model_name, record_id, operation, changes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.Exec(ctx, dbadapter.RebindDialect(dialect, query), modelName, recordID, string(op), changes, actor, nowUTC())
	if err != nil {
		return fmt.Errorf("writing change history for %s/%s: %w", modelName, recordID, err)
	}
	return nil
}
