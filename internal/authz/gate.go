// Package authz decides whether protected content may render for the
// current authentication state and role. The decision is a pure
// function of its inputs; nothing here holds state between checks.
package authz

// RoleGuest marks routes reserved for unauthenticated visitors
// (sign-in, sign-up pages).
const RoleGuest = "guest"

// Decision is the outcome of a gate check.
type Decision int

const (
	// Allow renders the requested content.
	Allow Decision = iota
	// Deny redirects to the route's fallback.
	Deny
)

// Decide applies the role-gating rules:
//   - nil required roles: the route is open to everyone;
//   - required contains only "guest": unauthenticated visitors only;
//   - otherwise: the user's role must be listed.
//
// An empty (non-nil) required slice denies everyone, matching a route
// that was explicitly locked down.
func Decide(isAuthenticated bool, userRole string, required []string) Decision {
	if required == nil {
		return Allow
	}

	for _, role := range required {
		if role == RoleGuest {
			if !isAuthenticated {
				return Allow
			}
			continue
		}
		if isAuthenticated && role == userRole {
			return Allow
		}
	}
	return Deny
}
