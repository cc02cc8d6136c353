package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/caminv"
	"github.com/openinvoice/caminv-portal/internal/db/models"
	"github.com/openinvoice/caminv-portal/internal/services/identity"
)

// stubResolver returns a fixed identity or error regardless of token.
type stubResolver struct {
	identity auth.Identity
	err      error
}

func (s *stubResolver) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	if s.err != nil {
		return auth.Identity{}, s.err
	}
	if token == "" {
		return auth.Identity{}, identity.ErrNoSession
	}
	return s.identity, nil
}

// stubTokenSource serves a fixed provider token or error.
type stubTokenSource struct {
	token *caminv.ProviderToken
	err   error
}

func (s *stubTokenSource) FetchToken(ctx context.Context) (*caminv.ProviderToken, error) {
	return s.token, s.err
}

// capture records what reached the downstream handler.
type capture struct {
	called  bool
	headers http.Header
	id      auth.Identity
	idOK    bool
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.headers = r.Header.Clone()
		c.id, c.idOK = auth.GetIdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func newTestGateway(t *testing.T, resolver IdentityResolver, source caminv.TokenSource) (*Gateway, *capture) {
	t.Helper()

	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)

	gw := NewGateway(
		NewRouteClassifier("/internal/caminv/token"),
		resolver,
		NewPolicy(enforcer, testLoginPath, testProviderHome, testTenantHome),
		NewProviderInjector(source, nil),
		nil,
	)
	return gw, &capture{}
}

func doRequest(gw *Gateway, c *capture, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	gw.Handler(c.handler()).ServeHTTP(rec, req)
	return rec
}

func TestGateway_ExcludedPassesThrough(t *testing.T) {
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrNoSession}, &stubTokenSource{err: assert.AnError})

	rec := doRequest(gw, c, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.called)
	assert.Empty(t, c.headers.Get(HeaderUserID))
}

func TestGateway_PublicPassesThrough(t *testing.T) {
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrNoSession}, &stubTokenSource{err: assert.AnError})

	rec := doRequest(gw, c, "/login", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.called)
}

func TestGateway_NoSessionRedirectsToLogin(t *testing.T) {
	gw, c := newTestGateway(t, &stubResolver{}, &stubTokenSource{})

	rec := doRequest(gw, c, "/invoices/42", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Finvoices%2F42", rec.Header().Get("Location"))
	assert.False(t, c.called)

	// A plain missing cookie is not a dead session; nothing to clear.
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

// A session proven dead by the store clears the client cookie and produces
// no identity headers.
func TestGateway_ExpiredSessionClearsCookie(t *testing.T) {
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrSessionExpired}, &stubTokenSource{})

	rec := doRequest(gw, c, "/invoices", "stale-token")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Finvoices", rec.Header().Get("Location"))
	assert.False(t, c.called)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))

	assert.Empty(t, rec.Header().Get(HeaderUserID))
	assert.Empty(t, rec.Header().Get(HeaderUserRole))
	assert.Empty(t, rec.Header().Get(HeaderTenantID))
}

func TestGateway_InvalidTokenDoesNotClearCookie(t *testing.T) {
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrInvalidToken}, &stubTokenSource{})

	rec := doRequest(gw, c, "/invoices", "garbage")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.False(t, c.called)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestGateway_RootRedirectsByRole(t *testing.T) {
	provider := &stubResolver{identity: auth.Identity{UserID: "p1", Role: models.RolePlatformProvider}}
	gw, c := newTestGateway(t, provider, &stubTokenSource{})

	rec := doRequest(gw, c, "/", "tok")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testProviderHome, rec.Header().Get("Location"))

	tenant := &stubResolver{identity: auth.Identity{UserID: "u1", Role: models.RoleTenantUser, TenantID: "t1"}}
	gw, c = newTestGateway(t, tenant, &stubTokenSource{})

	rec = doRequest(gw, c, "/", "tok")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testTenantHome, rec.Header().Get("Location"))
}

func TestGateway_WrongRoleRedirectsHome(t *testing.T) {
	tenant := &stubResolver{identity: auth.Identity{UserID: "u1", Role: models.RoleTenantUser, TenantID: "t1"}}
	gw, c := newTestGateway(t, tenant, &stubTokenSource{})

	rec := doRequest(gw, c, "/provider/anything", "tok")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testTenantHome, rec.Header().Get("Location"))
	assert.False(t, c.called)
}

func TestGateway_AllowAttachesIdentityHeaders(t *testing.T) {
	admin := &stubResolver{identity: auth.Identity{UserID: "u1", Role: models.RoleTenantAdmin, TenantID: "t1"}}
	gw, c := newTestGateway(t, admin, &stubTokenSource{})

	rec := doRequest(gw, c, "/invoices/42", "tok")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, c.called)

	assert.Equal(t, "u1", c.headers.Get(HeaderUserID))
	assert.Equal(t, "TENANT_ADMIN", c.headers.Get(HeaderUserRole))
	assert.Equal(t, "t1", c.headers.Get(HeaderTenantID))

	require.True(t, c.idOK)
	assert.Equal(t, "u1", c.id.UserID)
}

func TestGateway_APIInjectsProviderHeaders(t *testing.T) {
	source := &stubTokenSource{token: &caminv.ProviderToken{
		AccessToken: "prov-tok",
		BaseURL:     "https://api.caminvoice.example",
		ExpiresAt:   "2026-09-01T00:00:00Z",
	}}
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrNoSession}, source)

	rec := doRequest(gw, c, "/api/invoices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, c.called)

	assert.Equal(t, "prov-tok", c.headers.Get(HeaderProviderToken))
	assert.Equal(t, "https://api.caminvoice.example", c.headers.Get(HeaderProviderBaseURL))
	assert.Equal(t, "2026-09-01T00:00:00Z", c.headers.Get(HeaderProviderExpiresAt))
}

// A failing token endpoint degrades transparently: the API request still
// completes, just without provider headers.
func TestGateway_APIFailsOpenOnTokenFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := caminv.NewClient(srv.URL, 0)
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrNoSession}, client)

	rec := doRequest(gw, c, "/api/invoices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, c.called)

	assert.Empty(t, c.headers.Get(HeaderProviderToken))
	assert.Empty(t, c.headers.Get(HeaderProviderBaseURL))
	assert.Empty(t, c.headers.Get(HeaderProviderExpiresAt))
}

func TestGateway_APINeverRedirects(t *testing.T) {
	gw, c := newTestGateway(t, &stubResolver{err: identity.ErrSessionExpired}, &stubTokenSource{err: assert.AnError})

	rec := doRequest(gw, c, "/api/invoices", "stale")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, c.called)
	assert.Empty(t, rec.Header().Get("Location"))
}
