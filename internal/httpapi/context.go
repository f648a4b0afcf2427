package httpapi

import (
	"context"

	"github.com/ianzepp/monk-api/internal/dbadapter"
)

type contextKey int

const adapterContextKey contextKey = iota

// withAdapter returns a copy of ctx carrying the request's tenant-scoped
// Adapter, opened once by resolveTenant and reused by every handler
// downstream of it.
func withAdapter(ctx context.Context, adapter dbadapter.Adapter) context.Context {
	return context.WithValue(ctx, adapterContextKey, adapter)
}

// adapterFromContext returns the Adapter resolveTenant attached to ctx.
// Handlers call this rather than opening their own connection; it
// panics if called outside resolveTenant's chain, the same contract
// auth.MustFromContext uses downstream of RequireAuth.
func adapterFromContext(ctx context.Context) dbadapter.Adapter {
	a, ok := ctx.Value(adapterContextKey).(dbadapter.Adapter)
	if !ok {
		panic("httpapi: no adapter in context; resolveTenant must run first")
	}
	return a
}
