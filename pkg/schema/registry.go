package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
)

// Registry caches resolved Schemas keyed by (tenantID, modelName), with
// TTL expiry and write-triggered invalidation (spec.md §4.2, §5b).
// Concurrent cold lookups for the same key collapse into one DDL-
// metadata fetch via singleflight, the same promotion the pack's
// juju/juju dependency closure carries golang.org/x/sync in for.
type Registry struct {
	ttl                 time.Duration
	allowModelNameReuse bool

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry
	group singleflight.Group
}

type cacheKey struct {
	tenantID  string
	modelName string
}

type cacheEntry struct {
	schema    Schema
	expiresAt time.Time
}

// NewRegistry builds a Registry. allowModelNameReuse mirrors the
// MODEL_NAME_REUSE_ALLOWED config flag (spec.md §9 open question,
// default false).
func NewRegistry(ttl time.Duration, allowModelNameReuse bool) *Registry {
	return &Registry{
		ttl:                 ttl,
		allowModelNameReuse: allowModelNameReuse,
		cache:               make(map[cacheKey]cacheEntry),
	}
}

// ToSchema resolves a Model + its Fields for tenantID, serving from
// cache when fresh (spec.md §4.2's `toSchema`).
func (r *Registry) ToSchema(ctx context.Context, tenantID, modelName string, adapter dbadapter.Adapter) (Schema, error) {
	key := cacheKey{tenantID: tenantID, modelName: modelName}

	if s, ok := r.get(key); ok {
		return s, nil
	}

	groupKey := fmt.Sprintf("%s/%s", tenantID, modelName)
	v, err, _ := r.group.Do(groupKey, func() (any, error) {
		if s, ok := r.get(key); ok {
			return s, nil
		}
		m, err := loadModel(ctx, adapter, modelName)
		if err != nil {
			if err == dbadapter.ErrNoRows {
				return nil, apperr.Newf(apperr.CodeModelNotFound, "model %q not found", modelName)
			}
			return nil, fmt.Errorf("loading model %s: %w", modelName, err)
		}
		fields, err := loadFields(ctx, adapter, modelName)
		if err != nil {
			return nil, err
		}
		s := Schema{Model: m, Fields: fields}
		r.set(key, s)
		return s, nil
	})
	if err != nil {
		return Schema{}, err
	}
	return v.(Schema), nil
}

func (r *Registry) get(key cacheKey) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return Schema{}, false
	}
	return entry.schema, true
}

func (r *Registry) set(key cacheKey, s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = cacheEntry{schema: s, expiresAt: time.Now().Add(r.ttl)}
}

// Invalidate drops a single (tenantID, modelName) cache entry. Called
// by the record pipeline's post-phase observers whenever a write
// touches `models` or `fields` (spec.md §4.2's cache coherency rule:
// "stale reads cannot outlive a single request").
func (r *Registry) Invalidate(tenantID, modelName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, cacheKey{tenantID: tenantID, modelName: modelName})
}

// InvalidateTenant drops every cache entry for a tenant, used when a
// tenant is deprovisioned.
func (r *Registry) InvalidateTenant(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		if key.tenantID == tenantID {
			delete(r.cache, key)
		}
	}
}

// RequireNotSystem returns SYSTEM_MODEL_PROTECTED when s is a system
// Model and the caller has not been granted sudo (spec.md §4.2: "Any
// create/update/delete issued against a system Model through the
// public surface fails... The separate sudo surface may bypass this").
func RequireNotSystem(s Schema, sudo bool) error {
	if s.IsSystem() && !sudo {
		return apperr.Newf(apperr.CodeSystemProtected, "model %q is a protected system model", s.Model.ModelName)
	}
	return nil
}

// CheckModelNameAvailable enforces the non-reuse rule for trashed Model
// names (spec.md §3: "names are not reusable while metadata remains"),
// unless allowModelNameReuse (NewRegistry's second argument) is set.
func (r *Registry) CheckModelNameAvailable(ctx context.Context, adapter dbadapter.Adapter, modelName string) error {
	m, err := loadModel(ctx, adapter, modelName)
	if err == dbadapter.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking model name %s: %w", modelName, err)
	}
	if m.TrashedAt != nil && !r.allowModelNameReuse {
		return apperr.Newf(apperr.CodeModelNameInUse, "model name %q is trashed and not reusable", modelName)
	}
	if m.TrashedAt == nil {
		return apperr.Newf(apperr.CodeModelNameInUse, "model name %q already in use", modelName)
	}
	return nil
}
