package schema

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
)

const modelColumns = `id, model_name, status, sudo, frozen, immutable, external, description, created_at, updated_at, trashed_at, deleted_at`

const fieldColumns = `id, model_name, field_name, type, required, default_value, description, minimum, maximum, pattern,
	enum_values, is_array, is_unique, is_index, searchable, immutable, sudo, tracked, transform,
	relationship_type, related_model, related_field, relationship_name, cascade_delete, required_relationship,
	created_at, updated_at, trashed_at, deleted_at`

// loadModel reads a single non-deleted Model row by name.
func loadModel(ctx context.Context, adapter dbadapter.Adapter, modelName string) (Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE model_name = $1 AND deleted_at IS NULL`
	row := adapter.QueryRow(ctx, dbadapter.Rebind(adapter, query), modelName)
	return scanModel(row)
}

func scanModel(row dbadapter.Row) (Model, error) {
	var m Model
	var status string
	if err := row.Scan(&m.ID, &m.ModelName, &status, &m.Sudo, &m.Frozen, &m.Immutable, &m.External,
		&m.Description, &m.CreatedAt, &m.UpdatedAt, &m.TrashedAt, &m.DeletedAt); err != nil {
		return Model{}, err
	}
	m.Status = ModelStatus(status)
	return m, nil
}

// loadFields reads every non-deleted Field for a Model.
func loadFields(ctx context.Context, adapter dbadapter.Adapter, modelName string) ([]Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE model_name = $1 AND deleted_at IS NULL ORDER BY created_at`
	rows, err := adapter.Query(ctx, dbadapter.Rebind(adapter, query), modelName)
	if err != nil {
		return nil, fmt.Errorf("loading fields for %s: %w", modelName, err)
	}
	defer rows.Close()

	var out []Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning field row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanField(row dbadapter.Row) (Field, error) {
	var f Field
	var typ string
	var enumValues *string
	if err := row.Scan(&f.ID, &f.ModelName, &f.FieldName, &typ, &f.Required, &f.Default, &f.Description,
		&f.Minimum, &f.Maximum, &f.Pattern, &enumValues, &f.IsArray, &f.Unique, &f.Index, &f.Searchable,
		&f.Immutable, &f.Sudo, &f.Tracked, &f.Transform, &f.RelationshipType, &f.RelatedModel, &f.RelatedField,
		&f.RelationshipName, &f.CascadeDelete, &f.RequiredRelationship, &f.CreatedAt, &f.UpdatedAt, &f.TrashedAt, &f.DeletedAt); err != nil {
		return Field{}, err
	}
	f.Type = FieldType(typ)
	if enumValues != nil {
		f.EnumValues = splitCSV(*enumValues)
	}
	return f, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

// ListModels returns every non-deleted Model, newest first, with no
// Fields loaded (spec.md §6's supplemental `GET /api/describe` listing).
func ListModels(ctx context.Context, adapter dbadapter.Adapter) ([]Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := adapter.Query(ctx, dbadapter.Rebind(adapter, query))
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var out []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateModelRequest is the payload for creating a Model
// (spec.md §6 `POST /api/describe/:model`).
type CreateModelRequest struct {
	ModelName   string
	Description string
	Sudo        bool
	Frozen      bool
	Immutable   bool
	External    bool
}

// InsertModel inserts a pending Model row. The caller runs the backing
// table's CREATE TABLE separately and then transitions status to
// active (spec.md §3: "pending → active on first successful DDL").
func InsertModel(ctx context.Context, adapter dbadapter.Adapter, req CreateModelRequest) (Model, error) {
	if err := ValidateModelName(req.ModelName); err != nil {
		return Model{}, err
	}
	now := time.Now().UTC()
	m := Model{
		ID: uuid.New(), ModelName: req.ModelName, Status: StatusPending,
		Sudo: req.Sudo, Frozen: req.Frozen, Immutable: req.Immutable, External: req.External,
		Description: req.Description, CreatedAt: now, UpdatedAt: now,
	}
	query := `INSERT INTO models (id, model_name, status, sudo, frozen, immutable, external, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query), m.ID, m.ModelName, string(m.Status),
		m.Sudo, m.Frozen, m.Immutable, m.External, m.Description, m.CreatedAt, m.UpdatedAt); err != nil {
		return Model{}, fmt.Errorf("inserting model %s: %w", req.ModelName, err)
	}
	return m, nil
}

// ActivateModel transitions a Model from pending to active.
func ActivateModel(ctx context.Context, adapter dbadapter.Adapter, modelName string) error {
	query := `UPDATE models SET status = $2, updated_at = $3 WHERE model_name = $1`
	_, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query), modelName, string(StatusActive), time.Now().UTC())
	return err
}

// TrashModel soft-deletes a Model's metadata (the backing table is
// dropped by the caller beforehand via DropTableDDL).
func TrashModel(ctx context.Context, adapter dbadapter.Adapter, modelName string) error {
	now := time.Now().UTC()
	query := `UPDATE models SET trashed_at = $2, updated_at = $2 WHERE model_name = $1 AND trashed_at IS NULL`
	res, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query), modelName, now)
	if err != nil {
		return fmt.Errorf("trashing model %s: %w", modelName, err)
	}
	if res.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeAlreadyTrashed, "model %q already trashed", modelName)
	}
	return nil
}

// InsertField inserts a new Field row for an existing Model.
func InsertField(ctx context.Context, adapter dbadapter.Adapter, f Field) (Field, error) {
	if err := ValidateFieldName(f.FieldName); err != nil {
		return Field{}, err
	}
	f.ID = uuid.New()
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	var enumCSV *string
	if len(f.EnumValues) > 0 {
		joined := joinCSV(f.EnumValues)
		enumCSV = &joined
	}

	query := `INSERT INTO fields (id, model_name, field_name, type, required, default_value, description,
		minimum, maximum, pattern, enum_values, is_array, is_unique, is_index, searchable, immutable,
		sudo, tracked, transform, relationship_type, related_model, related_field, relationship_name,
		cascade_delete, required_relationship, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`
	_, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query),
		f.ID, f.ModelName, f.FieldName, string(f.Type), f.Required, f.Default, f.Description,
		f.Minimum, f.Maximum, f.Pattern, enumCSV, f.IsArray, f.Unique, f.Index, f.Searchable, f.Immutable,
		f.Sudo, f.Tracked, f.Transform, f.RelationshipType, f.RelatedModel, f.RelatedField, f.RelationshipName,
		f.CascadeDelete, f.RequiredRelationship, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return Field{}, fmt.Errorf("inserting field %s.%s: %w", f.ModelName, f.FieldName, err)
	}
	return f, nil
}

// DropField removes a Field's metadata row. The caller drops the
// backing column separately via DropColumnDDL.
func DropField(ctx context.Context, adapter dbadapter.Adapter, modelName, fieldName string) error {
	query := `DELETE FROM fields WHERE model_name = $1 AND field_name = $2`
	_, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query), modelName, fieldName)
	return err
}

// modelMetadataColumns whitelists which `models` columns a PUT
// /api/describe/:model may touch (spec.md §6: "partial metadata").
var modelMetadataColumns = map[string]bool{"description": true, "frozen": true, "immutable": true, "external": true, "sudo": true}

// UpdateModelMetadata applies a partial set of model-level metadata
// changes. An empty changes map is a no-op (spec.md §9's open-question
// resolution: "Empty-body PUT on Fields... kept as a no-op").
func UpdateModelMetadata(ctx context.Context, adapter dbadapter.Adapter, modelName string, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	var sets []string
	var args []any
	idx := 1
	for col, v := range changes {
		if !modelMetadataColumns[col] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, modelName)
	query := fmt.Sprintf(`UPDATE models SET %s WHERE model_name = $%d AND deleted_at IS NULL`, strings.Join(sets, ", "), idx)
	if _, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query), args...); err != nil {
		return fmt.Errorf("updating model %s metadata: %w", modelName, err)
	}
	return nil
}

// fieldMetadataColumns whitelists which `fields` columns a PUT
// /api/describe/:model/:field may touch. type is deliberately excluded:
// a type change runs through AlterColumnTypeDDL plus CountNonNull
// first, handled by the caller before this updates the metadata row.
var fieldMetadataColumns = map[string]bool{
	"description": true, "required": true, "default_value": true, "minimum": true, "maximum": true,
	"pattern": true, "is_unique": true, "is_index": true, "searchable": true, "immutable": true,
	"sudo": true, "tracked": true, "transform": true,
}

// UpdateFieldMetadata applies a partial set of field-level metadata
// changes, same no-op-on-empty contract as UpdateModelMetadata.
func UpdateFieldMetadata(ctx context.Context, adapter dbadapter.Adapter, modelName, fieldName string, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	var sets []string
	var args []any
	idx := 1
	for col, v := range changes {
		if !fieldMetadataColumns[col] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, modelName, fieldName)
	query := fmt.Sprintf(`UPDATE fields SET %s WHERE model_name = $%d AND field_name = $%d AND deleted_at IS NULL`,
		strings.Join(sets, ", "), idx, idx+1)
	if _, err := adapter.Exec(ctx, dbadapter.Rebind(adapter, query), args...); err != nil {
		return fmt.Errorf("updating field %s.%s metadata: %w", modelName, fieldName, err)
	}
	return nil
}

// GetField reads a single non-deleted Field by name.
func GetField(ctx context.Context, adapter dbadapter.Adapter, modelName, fieldName string) (Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE model_name = $1 AND field_name = $2 AND deleted_at IS NULL`
	row := adapter.QueryRow(ctx, dbadapter.Rebind(adapter, query), modelName, fieldName)
	return scanField(row)
}

// CountNonNull returns how many rows have a non-null value in the given
// column, used to decide whether a field type change is safe
// (spec.md §9's open-question resolution).
func CountNonNull(ctx context.Context, adapter dbadapter.Adapter, modelName, fieldName string) (int64, error) {
	table, err := QuoteIdentifier(modelName)
	if err != nil {
		return 0, err
	}
	col, err := QuoteIdentifier(fieldName)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL`, table, col)
	var n int64
	if err := adapter.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting non-null values in %s.%s: %w", modelName, fieldName, err)
	}
	return n, nil
}

func joinCSV(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
