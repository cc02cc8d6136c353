package tenants

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openinvoice/caminv-portal/internal/config"
	"github.com/openinvoice/caminv-portal/internal/db/bunx"
	"github.com/openinvoice/caminv-portal/internal/repository"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		tenants, err := repository.NewBunTenantRepository(db).List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}

		for _, t := range tenants {
			fmt.Printf("%s  %-30s  tax=%-15s  %s\n", t.ID, t.Name, t.TaxID, t.Status)
		}
		fmt.Printf("%d tenants\n", len(tenants))
		return nil
	},
}
