package auth

import (
	"log/slog"
	"net/http"
)

// Header names an upstream authenticator is expected to set once it has
// established the caller's identity. This module never verifies a
// credential itself; it only trusts and propagates what arrives here.
const (
	HeaderUserID   = "X-Monk-User-Id"
	HeaderTenantID = "X-Monk-Tenant-Id"
	HeaderName     = "X-Monk-User-Name"
	HeaderAccess   = "X-Monk-User-Access"
)

// Middleware extracts an Identity from trusted request headers and
// attaches it to the request context. Requests with no identity headers
// proceed unauthenticated; RequireAuth rejects those downstream.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(HeaderUserID)
			tenantID := r.Header.Get(HeaderTenantID)
			if userID == "" || tenantID == "" {
				next.ServeHTTP(w, r)
				return
			}

			access := Access(r.Header.Get(HeaderAccess))
			if !access.Valid() {
				logger.Warn("auth: unrecognized access header, denying", "access", access, "user_id", userID)
				access = AccessDeny
			}

			id := Identity{
				UserID:   userID,
				TenantID: tenantID,
				Name:     r.Header.Get(HeaderName),
				Access:   access,
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}
