package user

import (
	"fmt"
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/auth"
	"github.com/ianzepp/monk-api/internal/dbadapter"
)

// Store provides database operations for users, scoped to one tenant's
// Adapter.
type Store struct {
	adapter dbadapter.Adapter
}

// NewStore creates a user Store backed by the given tenant-scoped adapter.
func NewStore(adapter dbadapter.Adapter) *Store {
	return &Store{adapter: adapter}
}

const userColumns = `id, name, auth, access, created_at, updated_at, trashed_at, deleted_at`

func scanUser(row dbadapter.Row) (User, error) {
	var u User
	var access string
	if err := row.Scan(&u.ID, &u.Name, &u.Auth, &access, &u.CreatedAt, &u.UpdatedAt, &u.TrashedAt, &u.DeletedAt); err != nil {
		return User{}, err
	}
	u.Access = auth.Access(access)
	return u, nil
}

// Get returns a single non-deleted user by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	row := s.adapter.QueryRow(ctx, rebind(s.adapter, query), id)
	u, err := scanUser(row)
	if err != nil {
		if err == dbadapter.ErrNoRows {
			return User{}, apperr.Newf(apperr.CodeNotFound, "user %s not found", id)
		}
		return User{}, fmt.Errorf("scanning user %s: %w", id, err)
	}
	return u, nil
}

// List returns every non-deleted user.
func (s *Store) List(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL ORDER BY created_at`
	rows, err := s.adapter.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create inserts a new user with a freshly-generated ID.
func (s *Store) Create(ctx context.Context, req CreateRequest) (User, error) {
	return s.CreateWithID(ctx, uuid.New(), req)
}

// CreateWithID inserts a new user under a caller-supplied ID, the seam
// pkg/tenant.Manager uses to seed the reserved zero-UUID root user and
// a named owner during tenant provisioning (spec.md §4.1).
func (s *Store) CreateWithID(ctx context.Context, id uuid.UUID, req CreateRequest) (User, error) {
	now := time.Now().UTC()
	u := User{ID: id, Name: req.Name, Auth: req.Auth, Access: req.Access, CreatedAt: now, UpdatedAt: now}
	query := `INSERT INTO users (id, name, auth, access, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := s.adapter.Exec(ctx, rebind(s.adapter, query), u.ID, u.Name, u.Auth, string(u.Access), u.CreatedAt, u.UpdatedAt); err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// Update applies a partial update to an existing, non-trashed user.
func (s *Store) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (User, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if existing.TrashedAt != nil {
		return User{}, apperr.Newf(apperr.CodeTrashedRecord, "user %s is trashed", id)
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Auth != nil {
		existing.Auth = *req.Auth
	}
	if req.Access != nil {
		existing.Access = *req.Access
	}
	existing.UpdatedAt = time.Now().UTC()

	query := `UPDATE users SET name=$2, auth=$3, access=$4, updated_at=$5 WHERE id=$1`
	if _, err := s.adapter.Exec(ctx, rebind(s.adapter, query), existing.ID, existing.Name, existing.Auth, string(existing.Access), existing.UpdatedAt); err != nil {
		return User{}, fmt.Errorf("updating user %s: %w", id, err)
	}
	return existing, nil
}

// SoftDelete sets trashed_at on a user.
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET trashed_at=$2, updated_at=$2 WHERE id=$1 AND trashed_at IS NULL`
	now := time.Now().UTC()
	res, err := s.adapter.Exec(ctx, rebind(s.adapter, query), id, now)
	if err != nil {
		return fmt.Errorf("soft-deleting user %s: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeAlreadyTrashed, "user %s already trashed", id)
	}
	return nil
}

// rebind rewrites $N placeholders to ? for SQLite-backed adapters.
func rebind(adapter dbadapter.Adapter, query string) string {
	return dbadapter.Rebind(adapter, query)
}
