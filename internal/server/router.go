package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/config"
	gatewaymw "github.com/openinvoice/caminv-portal/internal/middleware"
)

// RouterOptions controls the construction of the portal HTTP router.
type RouterOptions struct {
	Gateway     *gatewaymw.Gateway
	Auth        AuthDependencies
	Cfg         *config.Config
	CORSOptions *cors.Options
	ExtraRoutes func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles the chi router: baseline middleware, CORS, the request
// gateway, and the portal routes. Every route below the gateway sees only
// requests the routing policy allowed.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.Gateway != nil {
		r.Use(opts.Gateway.Handler)
	}

	r.Get("/healthz", healthHandler)

	// Auth endpoints (public class; the gateway passes them through).
	r.Post("/auth/login", HandleLogin(opts.Auth))
	r.Post("/auth/logout", HandleLogout(opts.Auth))

	// API surface.
	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/whoami", HandleWhoami())
	})

	// Application pages; these receive the x-user-* headers the gateway
	// attached.
	r.Get("/portal/dashboard", HandleDashboard())
	r.Get("/provider/dashboard", HandleDashboard())

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

// HandleDashboard is the landing page for authenticated identities. It
// renders from the identity the gateway resolved, proving the headers and
// context survived the middleware chain.
func HandleDashboard() http.HandlerFunc {
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
			"page":     "dashboard",
		})
	}
}
