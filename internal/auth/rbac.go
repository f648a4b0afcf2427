package auth

import (
	"encoding/json"
	"net/http"

	"github.com/ianzepp/monk-api/internal/apperr"
)

// RequireAuth rejects any request that reached this point with no
// Identity in context (UNAUTHENTICATED) or with AccessDeny (ACCESS_DENIED).
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			respondErr(w, apperr.New(apperr.CodeUnauthenticated, "no authenticated identity"))
			return
		}
		if id.Access == AccessDeny {
			respondErr(w, apperr.New(apperr.CodeAccessDenied, "access denied"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMinAccess rejects requests whose Identity is below min on the
// Access total order. Must run downstream of RequireAuth.
func RequireMinAccess(min Access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := MustFromContext(r.Context())
			if !id.atLeast(min) {
				respondErr(w, apperr.Newf(apperr.CodeAccessDenied, "requires %s access or above", min))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoot rejects any request whose Identity lacks root access
// (Identity.IsRoot; spec.md §4.1's "sudo" operations: create/list
// tenants).
func RequireRoot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := MustFromContext(r.Context())
		if !id.IsRoot() {
			respondErr(w, apperr.New(apperr.CodeAccessDenied, "requires root access"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respondErr writes the standard envelope directly, without depending on
// internal/httpapi, to avoid an import cycle (httpapi depends on auth for
// RequireAuth/RequireMinAccess wiring).
func respondErr(w http.ResponseWriter, err *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(struct {
		Success   bool   `json:"success"`
		Error     string `json:"error"`
		ErrorCode string `json:"error_code"`
	}{
		Success:   false,
		Error:     err.Message,
		ErrorCode: string(err.Code),
	})
}
