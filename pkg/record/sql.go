package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/pkg/filter"
	"github.com/ianzepp/monk-api/pkg/schema"
)

// columnsFor returns every column name a Model's table has: the base
// columns plus one per Field, in a stable order (base columns first).
func columnsFor(s schema.Schema) []string {
	cols := append([]string{}, baseColumns...)
	for _, f := range s.Fields {
		cols = append(cols, f.FieldName)
	}
	return cols
}

func quotedTable(modelName string) (string, error) {
	return schema.QuoteIdentifier(modelName)
}

// buildInsertSQL renders one multi-row INSERT covering every record in
// records, all of which must already share the same column set (the
// caller runs ValidateOrThrow + applyACLDefaults on each first).
func buildInsertSQL(s schema.Schema, records []Record) (string, []any, error) {
	table, err := quotedTable(s.Model.ModelName)
	if err != nil {
		return "", nil, err
	}
	cols := columnsFor(s)
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		q, err := schema.QuoteIdentifier(c)
		if err != nil {
			return "", nil, err
		}
		quotedCols[i] = q
	}

	var args []any
	var rowsSQL []string
	paramIdx := 1
	for _, rec := range records {
		placeholders := make([]string, len(cols))
		for i, c := range cols {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			paramIdx++
			args = append(args, rec[c])
		}
		rowsSQL = append(rowsSQL, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING %s",
		table, strings.Join(quotedCols, ", "), strings.Join(rowsSQL, ", "), strings.Join(quotedCols, ", "))
	return query, args, nil
}

// buildSelectSQL lowers a filter.Document against a Model's table,
// always folding in the soft-delete visibility clause (spec.md §8
// invariant 1).
func buildSelectSQL(s schema.Schema, doc filter.Document) (string, []any, error) {
	table, err := quotedTable(s.Model.ModelName)
	if err != nil {
		return "", nil, err
	}

	where, err := filter.ParseWhere(doc.Where)
	if err != nil {
		return "", nil, err
	}
	lowered, err := filter.Lower(where, 1)
	if err != nil {
		return "", nil, err
	}
	whereSQL, args := filter.AppendTrashedClause(lowered.SQL, lowered.Args, lowered.NextParamIndex, doc.Options.Trashed)

	selectCols := "*"
	if len(doc.Select) > 0 {
		quoted := make([]string, len(doc.Select))
		for i, c := range doc.Select {
			q, err := schema.QuoteIdentifier(c)
			if err != nil {
				return "", nil, err
			}
			quoted[i] = q
		}
		selectCols = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectCols, table, whereSQL)

	if len(doc.Order) > 0 {
		parts := make([]string, 0, len(doc.Order))
		for _, o := range doc.Order {
			if err := filter.ValidateIdentifier(o.Field); err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if strings.EqualFold(o.Sort, "desc") {
				dir = "DESC"
			}
			parts = append(parts, fmt.Sprintf(`"%s" %s`, o.Field, dir))
		}
		query += " ORDER BY " + strings.Join(parts, ", ")
	}
	if doc.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *doc.Limit)
	}
	if doc.Offset != nil {
		query += fmt.Sprintf(" OFFSET %d", *doc.Offset)
	}
	return query, args, nil
}

// buildSelectByIDsSQL is the common case of fetching specific rows by
// id, regardless of soft-delete state (callers check state themselves
// to produce TRASHED_RECORD/DELETED_RECORD rather than an empty read).
func buildSelectByIDsSQL(modelName string, ids []uuid.UUID) (string, []any, error) {
	table, err := quotedTable(modelName)
	if err != nil {
		return "", nil, err
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id IN (%s)`, table, strings.Join(placeholders, ", "))
	return query, args, nil
}

// buildUpdateSQL renders one UPDATE for a single row, setting every
// column present in changes plus updated_at.
func buildUpdateSQL(modelName string, id uuid.UUID, changes map[string]any, now time.Time) (string, []any, error) {
	table, err := quotedTable(modelName)
	if err != nil {
		return "", nil, err
	}
	var sets []string
	var args []any
	paramIdx := 1
	for col, v := range changes {
		if col == "id" {
			continue
		}
		q, err := schema.QuoteIdentifier(col)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", q, paramIdx))
		args = append(args, v)
		paramIdx++
	}
	sets = append(sets, fmt.Sprintf(`"updated_at" = $%d`, paramIdx))
	args = append(args, now)
	paramIdx++

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *", table, strings.Join(sets, ", "), paramIdx)
	args = append(args, id)
	return query, args, nil
}

// buildSoftDeleteSQL renders the batch soft-delete statement (spec.md
// §4.4's `deleteAll` contract).
func buildSoftDeleteSQL(modelName string, ids []uuid.UUID, now time.Time) (string, []any, error) {
	table, err := quotedTable(modelName)
	if err != nil {
		return "", nil, err
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, now, now)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`UPDATE %s SET trashed_at = $1, updated_at = $2 WHERE id IN (%s) AND trashed_at IS NULL RETURNING *`,
		table, strings.Join(placeholders, ", "))
	return query, args, nil
}

// buildRevertSQL renders the batch revert statement (clears trashed_at
// for rows that currently have it set).
func buildRevertSQL(modelName string, ids []uuid.UUID, now time.Time) (string, []any, error) {
	table, err := quotedTable(modelName)
	if err != nil {
		return "", nil, err
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, now)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`UPDATE %s SET trashed_at = NULL, updated_at = $1 WHERE id IN (%s) AND trashed_at IS NOT NULL RETURNING *`,
		table, strings.Join(placeholders, ", "))
	return query, args, nil
}

// buildAccessSQL renders the restricted access-column-only UPDATE used
// by accessAll/accessAny (spec.md §4.4: "only access_read|edit|full|deny
// may be modified").
func buildAccessSQL(modelName string, id uuid.UUID, access map[string][]uuid.UUID, now time.Time) (string, []any, error) {
	table, err := quotedTable(modelName)
	if err != nil {
		return "", nil, err
	}
	allowed := []string{"access_read", "access_edit", "access_full", "access_deny"}
	var sets []string
	var args []any
	paramIdx := 1
	for _, col := range allowed {
		v, ok := access[col]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf(`"%s" = $%d`, col, paramIdx))
		args = append(args, v)
		paramIdx++
	}
	sets = append(sets, fmt.Sprintf(`"updated_at" = $%d`, paramIdx))
	args = append(args, now)
	paramIdx++

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *", table, strings.Join(sets, ", "), paramIdx)
	args = append(args, id)
	return query, args, nil
}
