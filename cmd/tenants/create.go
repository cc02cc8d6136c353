package tenants

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openinvoice/caminv-portal/internal/config"
	"github.com/openinvoice/caminv-portal/internal/db/bunx"
	"github.com/openinvoice/caminv-portal/internal/db/models"
	"github.com/openinvoice/caminv-portal/internal/repository"
)

var (
	nameFlag  string
	taxIDFlag string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if nameFlag == "" {
			return fmt.Errorf("--name flag is required")
		}
		if taxIDFlag == "" {
			return fmt.Errorf("--tax-id flag is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		tenant := &models.Tenant{
			ID:     bunx.NewUUIDv7(),
			Name:   nameFlag,
			TaxID:  taxIDFlag,
			Status: models.UserStatusActive,
		}
		if err := repository.NewBunTenantRepository(db).Create(context.Background(), tenant); err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}

		fmt.Printf("Created tenant %s (%s)\n", tenant.Name, tenant.ID)
		return nil
	},
}
