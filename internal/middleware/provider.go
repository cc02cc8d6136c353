package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/openinvoice/caminv-portal/internal/caminv"
	"github.com/openinvoice/caminv-portal/internal/telemetry"
)

// Provider credential headers merged into API-bound requests.
const (
	HeaderProviderToken     = "x-caminvoice-provider-token"
	HeaderProviderBaseURL   = "x-caminvoice-base-url"
	HeaderProviderExpiresAt = "x-caminvoice-token-expires-at"
)

// ProviderInjector attaches CamInvoice provider credentials to API requests.
//
// Fails open: a fetch error means the request proceeds without the provider
// headers. Downstream handlers have their own token-acquisition fallback, so
// availability wins over strictness here. This is the opposite posture from
// user authentication, which always fails closed; keep the two separate.
type ProviderInjector struct {
	source  caminv.TokenSource
	metrics *telemetry.GatewayMetrics
}

// NewProviderInjector builds an injector over the given token source.
// metrics may be nil.
func NewProviderInjector(source caminv.TokenSource, metrics *telemetry.GatewayMetrics) *ProviderInjector {
	return &ProviderInjector{source: source, metrics: metrics}
}

// Inject fetches a provider token and merges the credential headers into h.
// On any error h is left untouched and the error is only logged.
func (pi *ProviderInjector) Inject(ctx context.Context, h http.Header) {
	token, err := pi.source.FetchToken(ctx)
	if err != nil {
		log.Printf("provider token injection skipped: %v", err)
		if pi.metrics != nil {
			pi.metrics.RecordProviderFetchFailure(ctx)
		}
		return
	}

	h.Set(HeaderProviderToken, token.AccessToken)
	h.Set(HeaderProviderBaseURL, token.BaseURL)
	h.Set(HeaderProviderExpiresAt, token.ExpiresAt)
}
