package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/db/models"
	"github.com/openinvoice/caminv-portal/internal/repository"
)

const testSecret = "resolver-test-secret"

// mockSessionRepository backs resolver tests; keyed by token hash. The
// mutex covers the resolver's background last-used updates.
type mockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func (m *mockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.TokenHash] = session
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
}

func (m *mockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tokenHash]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
}

func (m *mockSessionRepository) GetByUserID(ctx context.Context, userID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSessionRepository) UpdateLastUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			s.LastUsedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
}

func (m *mockSessionRepository) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			s.Revoked = true
			return nil
		}
	}
	return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
}

func (m *mockSessionRepository) RevokeByUserID(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for hash, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

// mockUserRepository backs resolver tests; keyed by user ID.
type mockUserRepository struct {
	users map[string]*models.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (m *mockUserRepository) List(ctx context.Context) ([]models.User, error) {
	result := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

// mockTenantRepository backs resolver tests; keyed by tenant ID.
type mockTenantRepository struct {
	tenants map[string]*models.Tenant
}

func (m *mockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	m.tenants[tenant.ID] = tenant
	return nil
}

func (m *mockTenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	if t, ok := m.tenants[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("tenant %s: %w", id, repository.ErrNotFound)
}

func (m *mockTenantRepository) List(ctx context.Context) ([]models.Tenant, error) { return nil, nil }

type fixture struct {
	resolver *Resolver
	signer   *auth.Signer
	sessions *mockSessionRepository
	users    *mockUserRepository
	tenants  *mockTenantRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	verifier, err := auth.NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	signer, err := auth.NewSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	sessions := &mockSessionRepository{sessions: make(map[string]*models.Session)}
	users := &mockUserRepository{users: make(map[string]*models.User)}
	tenants := &mockTenantRepository{tenants: make(map[string]*models.Tenant)}

	resolver, err := NewResolver(verifier, sessions, users, tenants)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	return &fixture{resolver: resolver, signer: signer, sessions: sessions, users: users, tenants: tenants}
}

// mintSession creates a user, a live session for them, and a matching signed
// credential. Returns the credential.
func (f *fixture) mintSession(t *testing.T, user *models.User, expiresAt time.Time) string {
	t.Helper()

	f.users.users[user.ID] = user

	token, err := f.signer.Sign(user.ID, time.Until(expiresAt))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	f.sessions.sessions[auth.HashToken(token)] = &models.Session{
		ID:        "session-" + user.ID,
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: expiresAt,
	}
	return token
}

func activeUser(id string, role models.Role, tenantID *string) *models.User {
	return &models.User{
		ID:       id,
		Email:    id + "@example.com",
		Role:     role,
		TenantID: tenantID,
		Status:   models.UserStatusActive,
	}
}

func TestResolve_NoToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), "")
	if err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if ShouldClearCookie(err) {
		t.Error("missing token must not trigger cookie clearing")
	}
}

func TestResolve_InvalidToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), "garbage")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if ShouldClearCookie(err) {
		t.Error("verification failure must not trigger cookie clearing")
	}
}

// A valid signature whose session row was deleted must fail at the store, not
// fall back to trusting the JWT alone.
func TestResolve_SessionNotFound(t *testing.T) {
	f := newFixture(t)

	token, err := f.signer.Sign("user-ghost", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = f.resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if !ShouldClearCookie(err) {
		t.Error("store miss must trigger cookie clearing")
	}
}

func TestResolve_SessionExpired(t *testing.T) {
	f := newFixture(t)

	user := activeUser("user-1", models.RoleTenantUser, nil)
	f.users.users[user.ID] = user

	// Session row expired an hour ago; keep the JWT itself valid so the
	// failure is attributable to the store, not the credential.
	token, err := f.signer.Sign(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	f.sessions.sessions[auth.HashToken(token)] = &models.Session{
		ID:        "session-1",
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	_, err = f.resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !ShouldClearCookie(err) {
		t.Error("expired session must trigger cookie clearing")
	}
}

func TestResolve_SessionRevoked(t *testing.T) {
	f := newFixture(t)

	user := activeUser("user-1", models.RoleTenantUser, nil)
	token := f.mintSession(t, user, time.Now().Add(time.Hour))

	if err := f.sessions.Revoke(context.Background(), "session-user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, err := f.resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestResolve_UserInactive(t *testing.T) {
	f := newFixture(t)

	user := activeUser("user-1", models.RoleTenantAdmin, nil)
	user.Status = models.UserStatusSuspended
	token := f.mintSession(t, user, time.Now().Add(time.Hour))

	_, err := f.resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
	if !ShouldClearCookie(err) {
		t.Error("inactive user must trigger cookie clearing")
	}
}

func TestResolve_SuspendedTenantCascades(t *testing.T) {
	f := newFixture(t)

	tenantID := "t1"
	f.tenants.tenants[tenantID] = &models.Tenant{ID: tenantID, Name: "Acme", Status: models.UserStatusSuspended}

	user := activeUser("user-1", models.RoleTenantUser, &tenantID)
	token := f.mintSession(t, user, time.Now().Add(time.Hour))

	_, err := f.resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive for suspended tenant, got %v", err)
	}
}

func TestResolve_Success(t *testing.T) {
	f := newFixture(t)

	tenantID := "t1"
	f.tenants.tenants[tenantID] = &models.Tenant{ID: tenantID, Name: "Acme", Status: models.UserStatusActive}

	user := activeUser("user-1", models.RoleTenantAdmin, &tenantID)
	token := f.mintSession(t, user, time.Now().Add(time.Hour))

	id, err := f.resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if id.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", id.UserID)
	}
	if id.Role != models.RoleTenantAdmin {
		t.Errorf("expected TENANT_ADMIN, got %s", id.Role)
	}
	if id.TenantID != tenantID {
		t.Errorf("expected tenant %s, got %q", tenantID, id.TenantID)
	}
	if id.SessionID != "session-user-1" {
		t.Errorf("expected session-user-1, got %s", id.SessionID)
	}
}

// Tenant-less PROVIDER identities must carry an empty-string tenant, never a
// sentinel, so header maps downstream behave predictably.
func TestResolve_ProviderHasEmptyTenant(t *testing.T) {
	f := newFixture(t)

	user := activeUser("user-p", models.RolePlatformProvider, nil)
	token := f.mintSession(t, user, time.Now().Add(time.Hour))

	id, err := f.resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.TenantID != "" {
		t.Errorf("expected empty tenant, got %q", id.TenantID)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	f := newFixture(t)

	user := activeUser("user-1", models.RoleTenantUser, nil)
	token := f.mintSession(t, user, time.Now().Add(time.Hour))

	first, err := f.resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := f.resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first != second {
		t.Errorf("resolution is not idempotent: %+v vs %+v", first, second)
	}
}

// A credential signed for one user must not resolve through another user's
// session row.
func TestResolve_SubjectMismatch(t *testing.T) {
	f := newFixture(t)

	user := activeUser("user-1", models.RoleTenantUser, nil)
	f.users.users[user.ID] = user

	token, err := f.signer.Sign("user-other", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	f.sessions.sessions[auth.HashToken(token)] = &models.Session{
		ID:        "session-1",
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	_, err = f.resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for subject mismatch, got %v", err)
	}
}
