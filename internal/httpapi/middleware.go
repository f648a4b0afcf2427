package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/auth"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/internal/telemetry"
	"github.com/ianzepp/monk-api/pkg/tenant"
)

type requestIDKeyType int

const requestIDKey requestIDKeyType = iota

// requestIDFromContext extracts the request ID RequestID attached to ctx.
func requestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// RequestID injects a unique request ID into each request's context and
// response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs every request with method, path, status, and duration.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestIDFromContext(r.Context()),
			)
		})
	}
}

// Metrics records request duration to Prometheus, labeled with the
// matched chi route pattern rather than the raw path so cardinality
// stays bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		telemetry.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// AdapterTimeout bounds every request's context to d, so a stuck
// adapter call surfaces as CodeTimeout (spec.md §4.5's "ADAPTER_TIMEOUT
// bounds every adapter call") rather than hanging the connection open.
func AdapterTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveTenant runs downstream of auth.Middleware: it looks up the
// authenticated identity's tenant, opens the dialect-appropriate
// Adapter for it, and attaches both to the request context for every
// handler below (spec.md §4.1/§4.5). Unauthenticated requests pass
// through untouched — auth.RequireAuth rejects those before they reach
// a handler that would call adapterFromContext.
func resolveTenant(manager *tenant.Manager, postgres *dbadapter.PostgresFactory, sqlite *dbadapter.SQLiteFactory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			t, err := manager.GetTenant(r.Context(), id.TenantID)
			if err != nil {
				RespondErr(w, logger, apperr.Newf(apperr.CodeTenantNotFound, "tenant %q not found", id.TenantID))
				return
			}
			if !t.IsActive {
				RespondErr(w, logger, apperr.Newf(apperr.CodeTenantInactive, "tenant %q is inactive", id.TenantID))
				return
			}

			var adapter dbadapter.Adapter
			switch t.DBType {
			case tenant.DBTypeRelationalFile:
				adapter, err = sqlite.Open(r.Context(), t.Database)
			default:
				adapter, err = postgres.Open(r.Context(), t.Schema)
			}
			if err != nil {
				RespondErr(w, logger, apperr.Wrap(err, apperr.CodeInternal, "opening tenant storage"))
				return
			}
			defer adapter.Close()

			ctx := tenant.NewContext(r.Context(), t)
			ctx = withAdapter(ctx, adapter)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
