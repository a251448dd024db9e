// Package ctxkeys provides the context keys shared by middleware and handlers.
package ctxkeys

// Key is the type for all context keys in the application.
// Using a dedicated type prevents collisions with keys from other packages.
type Key string

const (
	// Request-scoped keys
	KeyRequestID Key = "request_id"

	// Auth-scoped keys
	KeyUserID Key = "user_id"
	KeyEmail  Key = "email"
	KeyRoles  Key = "roles"
	KeyClaims Key = "claims"
)
