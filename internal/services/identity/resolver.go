// Package identity resolves session credentials into authenticated identities.
//
// Resolution is a strict, short-circuiting sequence: stateless JWT
// verification first, then the session store, then the user directory. The
// two-layer check is deliberate defense-in-depth — the JWT alone
// authenticates cheaply, but only the store reflects server-side revocation
// (logout, suspension). A failed signature check is never papered over by a
// successful store lookup.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/db/models"
	"github.com/openinvoice/caminv-portal/internal/repository"
)

// Resolution failures, in the order the checks run. The gateway collapses
// all of them into a redirect to login; the distinction matters for logging
// and for deciding whether to clear the client's cookie.
var (
	ErrNoSession       = errors.New("no session credential presented")
	ErrInvalidToken    = errors.New("session credential failed verification")
	ErrSessionNotFound = errors.New("session not found in store")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrSessionExpired  = errors.New("session expired")
	ErrUserInactive    = errors.New("user not active")
)

// ShouldClearCookie reports whether a resolution failure proves the
// client-held token is dead server-side. Store-level failures clear the
// cookie so a dead session cannot be replayed; a missing or malformed token
// does not (there may be nothing to clear, and transient verification noise
// should not log users out of other tabs).
func ShouldClearCookie(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrUserInactive)
}

// Resolver combines JWT verification, the session store, and the user/tenant
// directory into a single authenticated identity. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	verifier *auth.Verifier
	sessions repository.SessionRepository
	users    repository.UserRepository
	tenants  repository.TenantRepository
}

// NewResolver constructs a Resolver. The verifier is injected already bound
// to the shared secret; the resolver never touches process environment.
func NewResolver(
	verifier *auth.Verifier,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	tenants repository.TenantRepository,
) (*Resolver, error) {
	if verifier == nil {
		return nil, errors.New("identity resolver requires a credential verifier")
	}
	if sessions == nil || users == nil {
		return nil, errors.New("identity resolver requires session and user repositories")
	}
	return &Resolver{
		verifier: verifier,
		sessions: sessions,
		users:    users,
		tenants:  tenants,
	}, nil
}

// Resolve derives the caller's identity from a session credential.
//
// Checks run in strict order and short-circuit on first failure:
//
//  1. credential present
//  2. JWT verifies against the shared secret
//  3. session exists in the store, is not revoked, is not expired
//  4. the referenced user (and tenant, when scoped) is ACTIVE
//
// The returned identity is derived fresh on every call; nothing is cached.
func (r *Resolver) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, ErrNoSession
	}

	claims, err := r.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrSecretNotConfigured) {
			// Deployment error, not a user-auth error. Logged distinctly but
			// collapsed to the same caller-visible outcome so config state
			// never leaks to clients.
			log.Printf("CONFIGURATION ERROR: session verification impossible: %v", err)
		}
		return auth.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	session, err := r.sessions.GetByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Identity{}, ErrSessionNotFound
		}
		return auth.Identity{}, fmt.Errorf("session lookup: %w", err)
	}

	if session.Revoked {
		return auth.Identity{}, ErrSessionRevoked
	}
	if time.Now().After(session.ExpiresAt) {
		return auth.Identity{}, ErrSessionExpired
	}

	user, err := r.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Session references a deleted user; treat like a dead identity.
			return auth.Identity{}, ErrUserInactive
		}
		return auth.Identity{}, fmt.Errorf("user lookup: %w", err)
	}

	if user.Status != models.UserStatusActive {
		return auth.Identity{}, ErrUserInactive
	}

	// Sanity check: the store row must belong to the credential's subject.
	if claims.Subject != user.ID {
		return auth.Identity{}, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}

	tenantID := ""
	if user.TenantID != nil {
		tenantID = *user.TenantID
		if r.tenants != nil {
			tenant, err := r.tenants.GetByID(ctx, tenantID)
			if err == nil && tenant.Status != models.UserStatusActive {
				// Tenant-level suspension cascades to its users.
				return auth.Identity{}, ErrUserInactive
			}
		}
	}

	// Stamp last use best-effort; the identity does not depend on it.
	sessionID := session.ID
	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.sessions.UpdateLastUsed(updateCtx, sessionID); err != nil {
			log.Printf("warning: failed to update session last_used: %v", err)
		}
	}()

	return auth.Identity{
		UserID:    user.ID,
		Role:      user.Role,
		TenantID:  tenantID,
		Status:    user.Status,
		SessionID: session.ID,
	}, nil
}
