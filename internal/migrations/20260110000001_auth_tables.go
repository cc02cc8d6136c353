package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/openinvoice/caminv-portal/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260110000001, down_20260110000001)
}

// up_20260110000001 creates the identity tables the gateway depends on:
// tenants, users, and sessions.
func up_20260110000001(ctx context.Context, db *bun.DB) error {
	// 1. Create tenants table
	fmt.Print(" [up] creating tenants table...")
	_, err := db.NewCreateTable().
		Model((*models.Tenant)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create tenants table: %w", err)
	}
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_tax_id ON tenants(tax_id)`)
	if err != nil {
		return fmt.Errorf("failed to create tenants tax_id index: %w", err)
	}
	fmt.Println(" OK")

	// 2. Create users table
	fmt.Print(" [up] creating users table...")
	_, err = db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`)
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_users_tenant_id ON users(tenant_id)`)
	if err != nil {
		return fmt.Errorf("failed to create users tenant_id index: %w", err)
	}
	fmt.Println(" OK")

	// 3. Create sessions table
	fmt.Print(" [up] creating sessions table...")
	_, err = db.NewCreateTable().
		Model((*models.Session)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_token_hash ON sessions(token_hash)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions token_hash index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions user_id index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260110000001 drops the identity tables
func down_20260110000001(ctx context.Context, db *bun.DB) error {
	for _, table := range []string{"sessions", "users", "tenants"} {
		if _, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
	}
	return nil
}
