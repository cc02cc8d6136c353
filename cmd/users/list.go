package users

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
	Short: "List portal users",
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

		users, err := repository.NewBunUserRepository(db).List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		for _, u := range users {
			tenant := "-"
			if u.TenantID != nil {
				tenant = *u.TenantID
			}
			fmt.Printf("%s  %-30s  %-13s  %-11s  tenant=%s\n", u.ID, u.Email, u.Role, u.Status, tenant)
		}
		fmt.Printf("%d users\n", len(users))
		return nil
	},
}
