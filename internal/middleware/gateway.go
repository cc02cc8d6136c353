package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/services/identity"
	"github.com/openinvoice/caminv-portal/internal/telemetry"
)

// IdentityResolver resolves a session token into an identity. Satisfied by
// *identity.Resolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

// Gateway is the single entry point every request passes through. It
// classifies the path, resolves identity for application paths, evaluates
// the routing policy, and injects provider credentials for API paths.
//
// No state survives between requests; each request re-derives everything
// from its cookie.
type Gateway struct {
	classifier *RouteClassifier
	resolver   IdentityResolver
	policy     *Policy
	injector   *ProviderInjector
	metrics    *telemetry.GatewayMetrics
}

// NewGateway wires the gateway components. metrics may be nil.
func NewGateway(classifier *RouteClassifier, resolver IdentityResolver, policy *Policy, injector *ProviderInjector, metrics *telemetry.GatewayMetrics) *Gateway {
	return &Gateway{
		classifier: classifier,
		resolver:   resolver,
		policy:     policy,
		injector:   injector,
		metrics:    metrics,
	}
}

// Handler returns the chi-compatible middleware.
func (g *Gateway) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		path := r.URL.Path
		class := g.classifier.Classify(path)

		switch class {
		case RouteExcluded, RoutePublic:
			g.record(ctx, class, rulePassThrough(class))
			next.ServeHTTP(w, r)
			return

		case RouteAPI:
			// API paths never redirect. Provider credentials are merged
			// best-effort; identity is resolved best-effort for handlers
			// that want it, but a dead session is not an API error here.
			g.injector.Inject(ctx, r.Header)
			if id, err := g.resolveFromCookie(ctx, r); err == nil {
				r = r.WithContext(auth.SetIdentityContext(ctx, id))
			}
			g.record(ctx, class, RuleAllow)
			next.ServeHTTP(w, r)
			return
		}

		// Application branch: resolve, then run the routing policy. Any
		// resolution failure collapses to the no-identity rule.
		start := time.Now()
		resolved, err := g.resolveFromCookie(ctx, r)
		g.recordResolution(ctx, time.Since(start), err)

		var id *auth.Identity
		if err != nil {
			if err != identity.ErrNoSession {
				log.Printf("identity resolution failed for %s: %v", path, err)
			}
			if identity.ShouldClearCookie(err) {
				http.SetCookie(w, auth.ClearSessionCookie(r))
			}
		} else {
			id = &resolved
		}

		decision, err := g.policy.Authorize(id, path, class)
		if err != nil {
			log.Printf("authorization failed for %s: %v", path, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		g.record(ctx, class, decision.Rule)

		switch decision.Outcome {
		case OutcomeRedirect:
			http.Redirect(w, r, decision.Location, http.StatusFound)

		case OutcomeAllow:
			for name, value := range decision.Headers {
				r.Header.Set(name, value)
			}
			r = r.WithContext(auth.SetIdentityContext(r.Context(), *id))
			next.ServeHTTP(w, r)

		default:
			next.ServeHTTP(w, r)
		}
	})
}

// resolveFromCookie pulls the session cookie (absence means no session) and
// hands it to the resolver.
func (g *Gateway) resolveFromCookie(ctx context.Context, r *http.Request) (auth.Identity, error) {
	token := ""
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		token = cookie.Value
	}
	return g.resolver.Resolve(ctx, token)
}

func (g *Gateway) record(ctx context.Context, class RouteClass, rule string) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordDecision(ctx, class.String(), rule)
}

func (g *Gateway) recordResolution(ctx context.Context, d time.Duration, err error) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordResolution(ctx, float64(d)/float64(time.Millisecond), err == nil)
}

func rulePassThrough(class RouteClass) string {
	if class == RouteExcluded {
		return RuleExcluded
	}
	return RulePublic
}
