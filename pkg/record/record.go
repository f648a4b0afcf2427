// Package record is the write path (spec.md §4.4): a single batch
// kernel — createAll/selectAny/select404/updateAll/updateAny/deleteAll/
// revertAll/accessAll — shared by every surface above it, with an
// observer pipeline folded in for validation, change history, and
// cache invalidation. Grounded on the teacher's pkg/incident (the
// Service/Store split, diff-computation-for-history shape) generalized
// from one hand-written record type to any dynamic Model.
package record

import (
	"time"

	"github.com/google/uuid"
)

// Record is one row of a dynamic Model's backing table: the base
// columns every table carries (spec.md §3) plus whatever scalar
// columns the Model's Fields define.
type Record map[string]any

var baseColumns = []string{
	"id", "created_at", "updated_at", "trashed_at", "deleted_at",
	"access_read", "access_edit", "access_full", "access_deny",
}

// IsBaseColumn reports whether name is one of the always-present base
// columns rather than a Field-defined column.
func IsBaseColumn(name string) bool {
	for _, c := range baseColumns {
		if c == name {
			return true
		}
	}
	return false
}

// ID returns the record's id as a canonical string, or "" if
// absent/malformed. The adapter may hand back a uuid.UUID, a string, or
// raw bytes depending on driver and column type, so this normalizes
// whichever shape Scan produced.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case uuid.UUID:
		return v.String()
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		if id, err := uuid.ParseBytes(v); err == nil {
			return id.String()
		}
		return string(v)
	default:
		return ""
	}
}

// IsTrashed reports whether trashed_at is set.
func (r Record) IsTrashed() bool {
	return r["trashed_at"] != nil
}

// IsDeleted reports whether deleted_at is set.
func (r Record) IsDeleted() bool {
	return r["deleted_at"] != nil
}

// StripBaseOption controls which base columns a projection keeps
// (spec.md §6's `?stat=` / `?access=` query parameters).
type StripBaseOption struct {
	Stat   bool // when false, drop created_at/updated_at/trashed_at/deleted_at
	Access bool // when false, drop access_*
}

// StripBase removes base columns per opt, returning a new Record so the
// caller's cached copy is left untouched.
func StripBase(r Record, opt StripBaseOption) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if !opt.Stat && (k == "created_at" || k == "updated_at" || k == "trashed_at" || k == "deleted_at") {
			continue
		}
		if !opt.Access && (k == "access_read" || k == "access_edit" || k == "access_full" || k == "access_deny") {
			continue
		}
		out[k] = v
	}
	return out
}

// nowUTC is the single clock read point for the package, kept as a
// var so tests can stub it.
var nowUTC = func() time.Time { return time.Now().UTC() }
