package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/dbadapter"
)

// Service is the tenant-scoped application layer between the HTTP
// handler and the Store.
type Service struct {
	store *Store
}

// NewService builds a Service over a tenant-scoped adapter.
func NewService(adapter dbadapter.Adapter) *Service {
	return &Service{store: NewStore(adapter)}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	return s.store.Create(ctx, req)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (User, error) {
	return s.store.Update(ctx, id, req)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.SoftDelete(ctx, id)
}
