// Package user stores and serves the per-tenant User principal
// (spec.md §3): id, name, auth (login identifier), and access (the
// coarse role consumed by internal/auth's RBAC checks).
package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/auth"
)

// User is a tenant's principal row.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Auth      string     `json:"auth"`
	Access    auth.Access `json:"access"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	TrashedAt *time.Time `json:"trashed_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// CreateRequest is the input to Store.Create and Store.CreateWithID.
type CreateRequest struct {
	Name   string      `json:"name" validate:"required,min=1"`
	Auth   string      `json:"auth" validate:"required,min=1"`
	Access auth.Access `json:"access" validate:"required,oneof=root full edit read deny"`
}

// UpdateRequest is the input to Store.Update.
type UpdateRequest struct {
	Name   *string      `json:"name,omitempty"`
	Auth   *string      `json:"auth,omitempty"`
	Access *auth.Access `json:"access,omitempty" validate:"omitempty,oneof=root full edit read deny"`
}
