package middleware

import (
	"github.com/openinvoice/caminv-portal/internal/auth"
)

// RouteClass partitions the request path space. Every path maps to exactly
// one class; classification is checked before anything else on a request.
type RouteClass int

const (
	// RouteExcluded paths bypass the gateway entirely: internal endpoints
	// the gateway itself calls (loop prevention), static assets, health.
	RouteExcluded RouteClass = iota

	// RoutePublic paths are reachable without identity: login, register,
	// onboarding, and the auth endpoints themselves.
	RoutePublic

	// RouteAPI paths get provider-token injection and are never redirected.
	RouteAPI

	// RouteApplication covers everything else: browser-facing pages that
	// require a resolved identity.
	RouteApplication
)

func (c RouteClass) String() string {
	switch c {
	case RouteExcluded:
		return "excluded"
	case RoutePublic:
		return "public"
	case RouteAPI:
		return "api"
	default:
		return "application"
	}
}

// RouteClassifier assigns each request path to a RouteClass.
type RouteClassifier struct {
	excluded []string
	public   []string
}

// NewRouteClassifier builds the classifier. tokenPath is the internal
// provider-token endpoint; it must be excluded so the gateway's own fetch
// never recurses through the gateway.
func NewRouteClassifier(tokenPath string) *RouteClassifier {
	excluded := []string{
		"/static",
		"/assets",
		"/favicon.ico",
		"/healthz",
	}
	if tokenPath != "" {
		excluded = append([]string{tokenPath}, excluded...)
	}
	return &RouteClassifier{
		excluded: excluded,
		public: []string{
			"/login",
			"/register",
			"/onboarding",
			"/auth",
		},
	}
}

// Classify maps a request path to its class. Total: every input yields a
// class, with RouteApplication as the catch-all.
func (rc *RouteClassifier) Classify(path string) RouteClass {
	for _, prefix := range rc.excluded {
		if auth.PathHasPrefix(path, prefix) {
			return RouteExcluded
		}
	}
	for _, prefix := range rc.public {
		if auth.PathHasPrefix(path, prefix) {
			return RoutePublic
		}
	}
	if auth.PathHasPrefix(path, "/api") {
		return RouteAPI
	}
	return RouteApplication
}
