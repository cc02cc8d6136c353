package users

import (
	"bufio"
	"context"
	"fmt"
	"net/mail"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/openinvoice/caminv-portal/internal/config"
	"github.com/openinvoice/caminv-portal/internal/db/bunx"
	"github.com/openinvoice/caminv-portal/internal/db/models"
	"github.com/openinvoice/caminv-portal/internal/repository"
)

var (
	emailFlag    string
	nameFlag     string
	passwordFlag string
	roleFlag     string
	tenantFlag   string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new portal user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if nameFlag == "" {
			return fmt.Errorf("--name flag is required")
		}

		role := models.Role(roleFlag)
		if !role.Valid() {
			return fmt.Errorf("--role must be one of PROVIDER, TENANT_ADMIN, TENANT_USER")
		}
		if role != models.RolePlatformProvider && tenantFlag == "" {
			return fmt.Errorf("--tenant-id is required for %s users", role)
		}
		if role == models.RolePlatformProvider && tenantFlag != "" {
			return fmt.Errorf("PROVIDER users do not belong to a tenant")
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
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

		ctx := context.Background()
		tenants := repository.NewBunTenantRepository(db)
		users := repository.NewBunUserRepository(db)

		var tenantID *string
		if tenantFlag != "" {
			if _, err := tenants.GetByID(ctx, tenantFlag); err != nil {
				return fmt.Errorf("tenant %s: %w", tenantFlag, err)
			}
			tenantID = &tenantFlag
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := &models.User{
			ID:           bunx.NewUUIDv7(),
			Email:        emailFlag,
			Name:         nameFlag,
			PasswordHash: string(hash),
			Role:         role,
			TenantID:     tenantID,
			Status:       models.UserStatusActive,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("Created user %s (%s, role %s)\n", user.Email, user.ID, user.Role)
		return nil
	},
}
