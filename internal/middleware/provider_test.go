package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openinvoice/caminv-portal/internal/caminv"
)

func TestInject_MergesHeaders(t *testing.T) {
	source := &stubTokenSource{token: &caminv.ProviderToken{
		AccessToken: "tok",
		BaseURL:     "https://api.caminvoice.example",
		ExpiresAt:   "2026-09-01T00:00:00Z",
	}}
	pi := NewProviderInjector(source, nil)

	h := http.Header{}
	h.Set("X-Existing", "kept")
	pi.Inject(context.Background(), h)

	assert.Equal(t, "tok", h.Get(HeaderProviderToken))
	assert.Equal(t, "https://api.caminvoice.example", h.Get(HeaderProviderBaseURL))
	assert.Equal(t, "2026-09-01T00:00:00Z", h.Get(HeaderProviderExpiresAt))
	assert.Equal(t, "kept", h.Get("X-Existing"))
}

func TestInject_FailsOpen(t *testing.T) {
	pi := NewProviderInjector(&stubTokenSource{err: assert.AnError}, nil)

	h := http.Header{}
	pi.Inject(context.Background(), h)

	assert.Empty(t, h.Get(HeaderProviderToken))
	assert.Empty(t, h.Get(HeaderProviderBaseURL))
	assert.Empty(t, h.Get(HeaderProviderExpiresAt))
}
