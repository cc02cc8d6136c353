package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Every parse problem collapses into one of these;
// the verifier never degrades a bad token into empty-but-valid claims.
var (
	// ErrSecretNotConfigured indicates the shared signing secret is missing.
	// This is a deployment error, not a user-auth error, and callers must log
	// it distinctly even though the caller-visible outcome is the same.
	ErrSecretNotConfigured = errors.New("session signing secret not configured")

	// ErrTokenMalformed indicates the credential is not a parseable JWT.
	ErrTokenMalformed = errors.New("session credential malformed")

	// ErrTokenExpired indicates the credential's exp claim is in the past.
	ErrTokenExpired = errors.New("session credential expired")

	// ErrTokenInvalid indicates a signature mismatch or failed claim validation.
	ErrTokenInvalid = errors.New("session credential invalid")
)

// Claims are the registered claims carried by a session credential. The
// subject is the user ID; issue and expiry times bound the credential
// independently of the server-side session row.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates session credentials against the shared HS256 secret.
// It is a pure function over its inputs: no I/O, safe for concurrent use.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier. An empty secret is refused so a
// misconfigured deployment fails at startup rather than per request.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrSecretNotConfigured
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a session credential. It fails closed: any
// parse error, signature mismatch, unexpected signing method, or missing
// subject yields an error, never partially-trusted claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrSecretNotConfigured
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// Signer mints session credentials at login. It shares the secret with the
// Verifier so a freshly minted credential always verifies.
type Signer struct {
	secret []byte
}

// NewSigner constructs a Signer. An empty secret is refused, matching NewVerifier.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrSecretNotConfigured
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign issues an HS256 session credential for the given user, valid for ttl.
func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session credential: %w", err)
	}
	return signed, nil
}
