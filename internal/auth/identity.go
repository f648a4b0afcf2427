// Package auth carries the authenticated principal through a request.
//
// Authentication itself — verifying a credential, issuing a session,
// exchanging an OIDC code — is out of scope for this module and is
// treated as an external collaborator (spec.md §1): some upstream
// component (a gateway, a sidecar, a separate auth service) is expected
// to have already established who the caller is and to populate the
// identity this package reads.
package auth

import "fmt"

// Access mirrors the User.access enum (spec.md §3): a total order from
// most to least privileged.
type Access string

const (
	AccessRoot Access = "root"
	AccessFull Access = "full"
	AccessEdit Access = "edit"
	AccessRead Access = "read"
	AccessDeny Access = "deny"
)

// accessLevel ranks Access values so RequireMinAccess can compare them.
var accessLevel = map[Access]int{
	AccessDeny: 0,
	AccessRead: 10,
	AccessEdit: 20,
	AccessFull: 30,
	AccessRoot: 40,
}

// Valid reports whether a is one of the known access levels.
func (a Access) Valid() bool {
	_, ok := accessLevel[a]
	return ok
}

// Identity is the authenticated principal attached to a request context
// by upstream middleware, after authentication has already happened.
type Identity struct {
	UserID   string
	TenantID string
	Name     string
	Access   Access
}

// String renders an Identity for logging.
func (id Identity) String() string {
	return fmt.Sprintf("user=%s tenant=%s access=%s", id.UserID, id.TenantID, id.Access)
}

// IsRoot reports whether this identity carries the root access level.
// It checks Access only, not UserID: any user with access=root passes,
// not just the zero-UUID account seeded at tenant creation.
func (id Identity) IsRoot() bool {
	return id.Access == AccessRoot
}

// atLeast reports whether id's access is at or above min on the total order.
func (id Identity) atLeast(min Access) bool {
	return accessLevel[id.Access] >= accessLevel[min]
}
