package auth

import (
	"context"

	"github.com/openinvoice/caminv-portal/internal/db/models"
)

// Identity captures the authenticated caller propagated through the request
// context. It is derived fresh on every request from the session cookie and
// never cached across requests.
type Identity struct {
	// UserID references the backing users row.
	UserID string
	// Role is the portal role resolved from the directory.
	Role models.Role
	// TenantID is the caller's tenant scope. Empty string for tenant-less
	// roles (PROVIDER); never nil-like sentinel values, so header maps and
	// string comparisons behave predictably downstream.
	TenantID string
	// Status is the user's directory status at resolution time.
	Status models.UserStatus
	// SessionID references the active session row.
	SessionID string
}

type identityContextKey struct{}

// SetIdentityContext stores the resolved identity on the context for
// downstream handlers.
func SetIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// GetIdentityFromContext retrieves the resolved identity from the context.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
