package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the signed session credential.
// The name is stable across the whole application.
const SessionCookieName = "session_token"

// HashToken creates a SHA256 hash of a token string. Sessions are stored and
// looked up by this hash so a database leak never exposes live credentials.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// NewSessionCookie builds the cookie set after a successful login.
func NewSessionCookie(r *http.Request, token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.URL.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie builds the cookie that instructs the client to discard
// its session credential. The gateway sets it whenever the session store
// rejects a presented token, so a dead session cannot be replayed.
func ClearSessionCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   r.URL.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	}
}
