// Package caminv talks to the internal CamInvoice provider-token endpoint.
//
// The gateway injects provider credentials into API-bound requests on behalf
// of the backend; this package owns the single HTTP call that obtains them.
// Callers decide what an error means (the gateway treats it as fail-open).
package caminv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProviderToken is the payload returned by the internal token endpoint.
type ProviderToken struct {
	AccessToken string `json:"accessToken"`
	BaseURL     string `json:"baseUrl"`
	ExpiresAt   string `json:"expiresAt"`
}

// TokenSource obtains a provider token for the current request. Satisfied by
// *Client; middleware tests substitute fakes.
type TokenSource interface {
	FetchToken(ctx context.Context) (*ProviderToken, error)
}

// Client fetches provider tokens over HTTP. Tokens are fetched per request
// and never cached here; freshness decisions belong to the token endpoint.
type Client struct {
	tokenURL string
	httpc    *http.Client
}

// NewClient creates a provider-token client against the given endpoint URL.
// timeout bounds each fetch end to end.
func NewClient(tokenURL string, timeout time.Duration) *Client {
	return &Client{
		tokenURL: tokenURL,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// FetchToken requests a provider token from the internal endpoint.
func (c *Client) FetchToken(ctx context.Context) (*ProviderToken, error) {
	if c.tokenURL == "" {
		return nil, fmt.Errorf("provider token endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider token fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("provider token endpoint returned status %d", resp.StatusCode)
	}

	var token ProviderToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode provider token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("provider token response missing access token")
	}

	return &token, nil
}
