package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openinvoice/caminv-portal/internal/auth"
	"github.com/openinvoice/caminv-portal/internal/caminv"
	"github.com/openinvoice/caminv-portal/internal/db/bunx"
	gatewaymw "github.com/openinvoice/caminv-portal/internal/middleware"
	"github.com/openinvoice/caminv-portal/internal/repository"
	"github.com/openinvoice/caminv-portal/internal/server"
	"github.com/openinvoice/caminv-portal/internal/services/identity"
	"github.com/openinvoice/caminv-portal/internal/telemetry"
)

// sessionCleanupInterval is how often expired session rows are swept.
const sessionCleanupInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal server",
	Long:  `Starts the HTTP server: gateway, auth endpoints, and portal routes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Initialize repositories
		sessionRepo := repository.NewBunSessionRepository(db)
		userRepo := repository.NewBunUserRepository(db)
		tenantRepo := repository.NewBunTenantRepository(db)
		auditRepo := repository.NewBunAuditLogRepository(db)

		// Session credential signing and verification share one secret.
		verifier, err := auth.NewVerifier(cfg.Session.JWTSecret)
		if err != nil {
			return fmt.Errorf("configure session verifier: %w", err)
		}
		signer, err := auth.NewSigner(cfg.Session.JWTSecret)
		if err != nil {
			return fmt.Errorf("configure session signer: %w", err)
		}

		resolver, err := identity.NewResolver(verifier, sessionRepo, userRepo, tenantRepo)
		if err != nil {
			return fmt.Errorf("configure identity resolver: %w", err)
		}

		enforcer, err := auth.InitEnforcer()
		if err != nil {
			return fmt.Errorf("configure casbin enforcer: %w", err)
		}

		metrics, err := telemetry.NewGatewayMetrics()
		if err != nil {
			return fmt.Errorf("configure gateway metrics: %w", err)
		}

		providerClient := caminv.NewClient(cfg.CamInv.TokenURL, cfg.CamInv.FetchTimeout)

		gateway := gatewaymw.NewGateway(
			gatewaymw.NewRouteClassifier(cfg.CamInv.TokenPath),
			resolver,
			gatewaymw.NewPolicy(enforcer, cfg.Session.LoginPath, cfg.Session.ProviderHome, cfg.Session.TenantHome),
			gatewaymw.NewProviderInjector(providerClient, metrics),
			metrics,
		)

		r := server.NewRouter(server.RouterOptions{
			Gateway: gateway,
			Auth: server.AuthDependencies{
				Users:    userRepo,
				Sessions: sessionRepo,
				Audits:   auditRepo,
				Signer:   signer,
				Resolver: resolver,
				Cfg:      cfg,
			},
			Cfg: cfg,
		})

		// Background sweep of expired session rows.
		cleanupCtx, cancelCleanup := context.WithCancel(cmd.Context())
		defer cancelCleanup()
		go func() {
			ticker := time.NewTicker(sessionCleanupInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					sweepExpiredSessions(cleanupCtx, sessionRepo)
				case <-cleanupCtx.Done():
					return
				}
			}
		}()

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// SIGHUP triggers an immediate expired-session sweep.
		sweep := make(chan os.Signal, 1)
		signal.Notify(sweep, syscall.SIGHUP)

		for {
			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case sig := <-sweep:
				log.Printf("Received signal %v, sweeping expired sessions", sig)
				sweepExpiredSessions(cleanupCtx, sessionRepo)

			case sig := <-shutdown:
				log.Printf("Received signal %v, shutting down gracefully", sig)

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}

				log.Printf("Server stopped")
				return nil
			}
		}
	},
}

func sweepExpiredSessions(ctx context.Context, sessions repository.SessionRepository) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := sessions.DeleteExpired(sweepCtx)
	if err != nil {
		log.Printf("ERROR: expired session sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Deleted %d expired sessions", n)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
