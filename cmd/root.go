package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openinvoice/caminv-portal/cmd/tenants"
	"github.com/openinvoice/caminv-portal/cmd/users"
	"github.com/openinvoice/caminv-portal/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "caminv-portal",
	Short: "Multi-tenant e-invoicing portal for the CamInvoice platform",
	Long: `caminv-portal serves the tenant-facing e-invoicing web application.
Every request passes through a session-checking gateway that routes users
by role and injects CamInvoice provider credentials into API calls.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags (documented mirrors of the environment variables)
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")

	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(tenants.TenantsCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
