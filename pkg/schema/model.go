// Package schema is the schema registry and dynamic-model engine
// (spec.md §4.2): it stores Model and Field definitions as first-class
// records, validates record payloads against them, and emits the DDL
// that materialises each Model as a backing table.
package schema

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ModelStatus is a Model's lifecycle state.
type ModelStatus string

const (
	StatusPending ModelStatus = "pending"
	StatusActive  ModelStatus = "active"
	StatusSystem  ModelStatus = "system"
)

// ModelNamePattern is the allowed shape for a model_name (spec.md §3).
var ModelNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Model is a record type defined at runtime.
type Model struct {
	ID          uuid.UUID
	ModelName   string
	Status      ModelStatus
	Sudo        bool
	Frozen      bool
	Immutable   bool
	External    bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TrashedAt   *time.Time
	DeletedAt   *time.Time
}

// IsSystem reports whether this Model is read-only through the public
// surface (spec.md §4.2's "system-model protection").
func (m Model) IsSystem() bool { return m.Status == StatusSystem }

// FieldType is one of the wire field types (spec.md §6).
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldInteger   FieldType = "integer"
	FieldDecimal   FieldType = "decimal"
	FieldNumeric   FieldType = "numeric"
	FieldBoolean   FieldType = "boolean"
	FieldTimestamp FieldType = "timestamp"
	FieldDate      FieldType = "date"
	FieldUUID      FieldType = "uuid"
	FieldJSONB     FieldType = "jsonb"
	FieldBinary    FieldType = "binary"
	FieldBigserial FieldType = "bigserial"
)

// knownScalarTypes are the base types is_array wraps into an array form.
var knownScalarTypes = map[FieldType]bool{
	FieldText: true, FieldInteger: true, FieldDecimal: true, FieldNumeric: true,
	FieldBoolean: true, FieldTimestamp: true, FieldDate: true, FieldUUID: true,
	FieldJSONB: true, FieldBinary: true, FieldBigserial: true,
}

// Field is a column of a Model (spec.md §3's Field attributes).
type Field struct {
	ID          uuid.UUID
	ModelName   string
	FieldName   string
	Type        FieldType
	IsArray     bool
	Required    bool
	Default     *string
	Description string

	Minimum    *float64
	Maximum    *float64
	Pattern    *string
	EnumValues []string

	Unique     bool
	Index      bool
	Searchable bool
	Immutable  bool
	Sudo       bool
	Tracked    bool
	Transform  *string

	RelationshipType     *string
	RelatedModel         *string
	RelatedField         *string
	RelationshipName     *string
	CascadeDelete        bool
	RequiredRelationship bool

	CreatedAt time.Time
	UpdatedAt time.Time
	TrashedAt *time.Time
	DeletedAt *time.Time
}

// FieldNamePattern mirrors ModelNamePattern for field_name validation.
var FieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
