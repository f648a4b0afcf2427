package record

import (
	"context"

	"github.com/ianzepp/monk-api/pkg/schema"
	"github.com/ianzepp/monk-api/pkg/tenant"
)

// CacheInvalidator is notified whenever a write may have made cached
// query results for (tenantID, modelName) stale (spec.md §4.4: "Cache
// invalidation — notify the pattern cache that queries referencing
// this model are now stale"). pkg/querycache implements this.
type CacheInvalidator interface {
	InvalidateModel(tenantID, modelName string)
}

// InvalidationObserver is the post-phase observer every write phase
// registers against "*": it drops the schema registry's cached Schema
// for the written model and fans the same signal out to any number of
// downstream caches (the filesystem-pattern query cache, primarily).
type InvalidationObserver struct {
	registry *schema.Registry
	caches   []CacheInvalidator
}

// NewInvalidationObserver builds the observer. Pass every CacheInvalidator
// that should be notified alongside the schema registry itself.
func NewInvalidationObserver(registry *schema.Registry, caches ...CacheInvalidator) *InvalidationObserver {
	return &InvalidationObserver{registry: registry, caches: caches}
}

func (o *InvalidationObserver) Run(ctx context.Context, batch *Batch) error {
	tenantID := ""
	if t := tenant.FromContext(ctx); t != nil {
		tenantID = t.ID.String()
	}
	o.registry.Invalidate(tenantID, batch.ModelName)
	for _, c := range o.caches {
		c.InvalidateModel(tenantID, batch.ModelName)
	}
	return nil
}
