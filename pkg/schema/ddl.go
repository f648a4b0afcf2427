package schema

import (
	"fmt"
	"strings"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
)

// sqlType maps a Field's wire type to a dialect-appropriate column
// type. Grounded on the teacher pack's DDL-building idiom (NexusCRM's
// schema_manager.go buildColumnDDL), generalized across the two
// dialects this module's dbadapter supports instead of one.
func sqlType(f Field, dialect dbadapter.Dialect) (string, error) {
	base, ok := map[FieldType]map[dbadapter.Dialect]string{
		FieldText:      {dbadapter.DialectPostgres: "text", dbadapter.DialectSQLite: "TEXT"},
		FieldInteger:   {dbadapter.DialectPostgres: "integer", dbadapter.DialectSQLite: "INTEGER"},
		FieldBigserial: {dbadapter.DialectPostgres: "bigint", dbadapter.DialectSQLite: "INTEGER"},
		FieldDecimal:   {dbadapter.DialectPostgres: "numeric", dbadapter.DialectSQLite: "REAL"},
		FieldNumeric:   {dbadapter.DialectPostgres: "numeric", dbadapter.DialectSQLite: "REAL"},
		FieldBoolean:   {dbadapter.DialectPostgres: "boolean", dbadapter.DialectSQLite: "INTEGER"},
		FieldTimestamp: {dbadapter.DialectPostgres: "timestamptz", dbadapter.DialectSQLite: "TEXT"},
		FieldDate:      {dbadapter.DialectPostgres: "date", dbadapter.DialectSQLite: "TEXT"},
		FieldUUID:      {dbadapter.DialectPostgres: "uuid", dbadapter.DialectSQLite: "TEXT"},
		FieldJSONB:     {dbadapter.DialectPostgres: "jsonb", dbadapter.DialectSQLite: "TEXT"},
		FieldBinary:    {dbadapter.DialectPostgres: "bytea", dbadapter.DialectSQLite: "BLOB"},
	}[f.Type]
	if !ok {
		return "", apperr.Newf(apperr.CodeValidation, "unknown field type %q", f.Type)
	}
	t := base[dialect]
	if f.IsArray {
		if dialect == dbadapter.DialectPostgres {
			return t + "[]", nil
		}
		// SQLite has no array type; arrays are stored JSON-encoded in TEXT.
		return "TEXT", nil
	}
	return t, nil
}

// baseColumns are the columns every backing table gets regardless of
// its Fields (spec.md §3's Record base attributes).
func baseColumnsDDL(dialect dbadapter.Dialect) []string {
	ts := "timestamptz"
	uuidT := "uuid"
	arrDefault := "'{}'"
	arrType := "uuid[]"
	if dialect == dbadapter.DialectSQLite {
		ts = "TEXT"
		uuidT = "TEXT"
		arrDefault = "'[]'"
		arrType = "TEXT"
	}
	return []string{
		fmt.Sprintf(`"id" %s PRIMARY KEY`, uuidT),
		fmt.Sprintf(`"created_at" %s NOT NULL`, ts),
		fmt.Sprintf(`"updated_at" %s NOT NULL`, ts),
		fmt.Sprintf(`"trashed_at" %s`, ts),
		fmt.Sprintf(`"deleted_at" %s`, ts),
		fmt.Sprintf(`"access_read" %s NOT NULL DEFAULT %s`, arrType, arrDefault),
		fmt.Sprintf(`"access_edit" %s NOT NULL DEFAULT %s`, arrType, arrDefault),
		fmt.Sprintf(`"access_full" %s NOT NULL DEFAULT %s`, arrType, arrDefault),
		fmt.Sprintf(`"access_deny" %s NOT NULL DEFAULT %s`, arrType, arrDefault),
	}
}

// CreateTableDDL renders the CREATE TABLE statement that materialises a
// Model as a backing table (spec.md §4.2's `ddl()`).
func CreateTableDDL(m Model, fields []Field, dialect dbadapter.Dialect) (string, error) {
	if err := ValidateModelName(m.ModelName); err != nil {
		return "", err
	}
	quoted, err := QuoteIdentifier(m.ModelName)
	if err != nil {
		return "", err
	}

	cols := baseColumnsDDL(dialect)
	for _, f := range fields {
		if err := ValidateFieldName(f.FieldName); err != nil {
			return "", err
		}
		colDDL, err := columnDDL(f, dialect)
		if err != nil {
			return "", err
		}
		cols = append(cols, colDDL)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoted)
	b.WriteString("  " + strings.Join(cols, ",\n  "))
	b.WriteString("\n)")
	return b.String(), nil
}

func columnDDL(f Field, dialect dbadapter.Dialect) (string, error) {
	quoted, err := QuoteIdentifier(f.FieldName)
	if err != nil {
		return "", err
	}
	t, err := sqlType(f, dialect)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", quoted, t)
	if f.Default != nil {
		fmt.Fprintf(&b, " DEFAULT %s", quoteLiteral(*f.Default))
	}
	// NOT NULL only when there's a default to satisfy it, or the table
	// is empty (ADD COLUMN path checks emptiness separately — see
	// AddColumnDDL); for CREATE TABLE, required+default is the safe case.
	if f.Required && f.Default != nil {
		b.WriteString(" NOT NULL")
	}
	if f.Unique {
		b.WriteString(" UNIQUE")
	}
	return b.String(), nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// AddColumnDDL renders `ALTER TABLE ... ADD COLUMN` for a newly created
// Field on an existing Model (spec.md §4.2's DDL rule: "ADD COLUMN,
// with default if provided, NOT NULL only when the column has a default
// or the table is empty").
func AddColumnDDL(modelName string, f Field, dialect dbadapter.Dialect, tableIsEmpty bool) (string, error) {
	table, err := QuoteIdentifier(modelName)
	if err != nil {
		return "", err
	}
	col, err := columnDDLForAlter(f, dialect, tableIsEmpty)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, col), nil
}

func columnDDLForAlter(f Field, dialect dbadapter.Dialect, tableIsEmpty bool) (string, error) {
	quoted, err := QuoteIdentifier(f.FieldName)
	if err != nil {
		return "", err
	}
	t, err := sqlType(f, dialect)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", quoted, t)
	if f.Default != nil {
		fmt.Fprintf(&b, " DEFAULT %s", quoteLiteral(*f.Default))
	}
	if f.Required && (f.Default != nil || tableIsEmpty) {
		b.WriteString(" NOT NULL")
	}
	return b.String(), nil
}

// DropColumnDDL renders `ALTER TABLE ... DROP COLUMN IF EXISTS` for a
// removed Field.
func DropColumnDDL(modelName, fieldName string) (string, error) {
	table, err := QuoteIdentifier(modelName)
	if err != nil {
		return "", err
	}
	col, err := QuoteIdentifier(fieldName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s", table, col), nil
}

// DropTableDDL renders the statement used when a Model is soft-deleted
// (spec.md §3: "trashed soft-delete drops the backing table but
// retains metadata").
func DropTableDDL(modelName string) (string, error) {
	table, err := QuoteIdentifier(modelName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table), nil
}

// AlterColumnTypeDDL renders an `ALTER COLUMN ... TYPE` change. It does
// not check whether the change widens or narrows the type; its caller
// (the field update handler) only calls it after a live IS NOT NULL
// count check found no non-null values in the column.
func AlterColumnTypeDDL(modelName string, f Field, dialect dbadapter.Dialect) (string, error) {
	if dialect != dbadapter.DialectPostgres {
		return "", apperr.New(apperr.CodeValidation, "column type changes are only supported for postgres-backed tenants")
	}
	table, err := QuoteIdentifier(modelName)
	if err != nil {
		return "", err
	}
	col, err := QuoteIdentifier(f.FieldName)
	if err != nil {
		return "", err
	}
	t, err := sqlType(f, dialect)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", table, col, t), nil
}
