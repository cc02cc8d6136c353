package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/config"
	"github.com/openinvoice/caminv-portal/internal/db/bunx"
	"github.com/openinvoice/caminv-portal/internal/db/models"
	"github.com/openinvoice/caminv-portal/internal/repository"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
	Redirect string `json:"redirect"`
}

// AuthDependencies bundles what the login/logout handlers need.
type AuthDependencies struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Audits   repository.AuditLogRepository
	Signer   *auth.Signer
	Resolver identityResolver
	Cfg      *config.Config
}

// identityResolver matches the gateway's resolver; logout uses it to find
// the session behind the presented cookie.
type identityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

// HandleLogin authenticates email+password, creates a session row, signs the
// session credential, and sets the session cookie. Failed attempts return a
// uniform 401 and are audit-logged.
func HandleLogin(deps AuthDependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" {
			http.Error(w, "Email and password are required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		user, err := authenticate(ctx, deps.Users, req.Email, req.Password)
		if err != nil {
			auditLogin(ctx, deps.Audits, nil, r, "auth.login_failed", req.Email)
			if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAccountInactive) {
				http.Error(w, "Invalid credentials", http.StatusUnauthorized)
				return
			}
			log.Printf("login failed for %s: %v", req.Email, err)
			http.Error(w, "Authentication error", http.StatusInternalServerError)
			return
		}

		expiresAt := time.Now().Add(deps.Cfg.Session.TTL)
		token, err := deps.Signer.Sign(user.ID, deps.Cfg.Session.TTL)
		if err != nil {
			log.Printf("failed to sign session credential for %s: %v", user.ID, err)
			http.Error(w, "Authentication error", http.StatusInternalServerError)
			return
		}

		session := &models.Session{
			ID:        bunx.NewUUIDv7(),
			UserID:    user.ID,
			TokenHash: auth.HashToken(token),
			ExpiresAt: expiresAt,
			UserAgent: optional(r.UserAgent()),
			IPAddress: optional(clientIP(r)),
		}
		if err := deps.Sessions.Create(ctx, session); err != nil {
			log.Printf("failed to create session for %s: %v", user.ID, err)
			http.Error(w, "Authentication error", http.StatusInternalServerError)
			return
		}

		if err := deps.Users.UpdateLastLogin(ctx, user.ID); err != nil {
			log.Printf("failed to update last login for %s: %v", user.ID, err)
		}
		auditLogin(ctx, deps.Audits, user, r, "auth.login", "")

		http.SetCookie(w, auth.NewSessionCookie(r, token, expiresAt))

		redirect := r.URL.Query().Get("redirect")
		if redirect == "" || redirect[0] != '/' {
			redirect = auth.HomePathFor(user.Role, deps.Cfg.Session.ProviderHome, deps.Cfg.Session.TenantHome)
		}

		writeJSON(w, http.StatusOK, loginResponse{
			UserID:   user.ID,
			Email:    user.Email,
			Name:     user.Name,
			Role:     string(user.Role),
			TenantID: tenantOrEmpty(user.TenantID),
			Redirect: redirect,
		})
	}
}

// HandleLogout revokes the session behind the presented cookie and clears it.
// Always clears the cookie, even when the session was already dead.
func HandleLogout(deps AuthDependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer http.SetCookie(w, auth.ClearSessionCookie(r))

		cookie, err := r.Cookie(auth.SessionCookieName)
		if err != nil || cookie.Value == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		identity, err := deps.Resolver.Resolve(ctx, cookie.Value)
		if err != nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := deps.Sessions.Revoke(ctx, identity.SessionID); err != nil {
			log.Printf("failed to revoke session %s: %v", identity.SessionID, err)
			http.Error(w, "Logout failed", http.StatusInternalServerError)
			return
		}
		auditIdentity(ctx, deps.Audits, identity, r, "auth.logout")

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleWhoami echoes the identity the gateway resolved for this API request.
func HandleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"userId":   identity.UserID,
			"role":     string(identity.Role),
			"tenantId": identity.TenantID,
		})
	}
}

// dummyHash keeps unknown-email comparisons costing the same as real ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("caminv-portal-dummy"), bcrypt.DefaultCost)

func authenticate(ctx context.Context, users repository.UserRepository, email, password string) (*models.User, error) {
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

func auditLogin(ctx context.Context, audits repository.AuditLogRepository, user *models.User, r *http.Request, action, detail string) {
	entry := &models.AuditLog{
		ID:        bunx.NewUUIDv7(),
		Action:    action,
		Path:      r.URL.Path,
		IPAddress: optional(clientIP(r)),
		Detail:    detail,
	}
	if user != nil {
		entry.UserID = &user.ID
		entry.TenantID = user.TenantID
	}
	if err := audits.Append(ctx, entry); err != nil {
		log.Printf("failed to append audit log entry %s: %v", action, err)
	}
}

func auditIdentity(ctx context.Context, audits repository.AuditLogRepository, identity auth.Identity, r *http.Request, action string) {
	entry := &models.AuditLog{
		ID:        bunx.NewUUIDv7(),
		UserID:    &identity.UserID,
		Action:    action,
		Path:      r.URL.Path,
		IPAddress: optional(clientIP(r)),
	}
	if identity.TenantID != "" {
		entry.TenantID = &identity.TenantID
	}
	if err := audits.Append(ctx, entry); err != nil {
		log.Printf("failed to append audit log entry %s: %v", action, err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tenantOrEmpty(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
