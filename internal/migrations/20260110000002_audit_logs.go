package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/openinvoice/caminv-portal/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260110000002, down_20260110000002)
}

// up_20260110000002 creates the audit_logs table
func up_20260110000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating audit_logs table...")
	_, err := db.NewCreateTable().
		Model((*models.AuditLog)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_logs_tenant_id ON audit_logs(tenant_id)`)
	if err != nil {
		return fmt.Errorf("failed to create audit_logs tenant_id index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create audit_logs created_at index: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

// down_20260110000002 drops the audit_logs table
func down_20260110000002(ctx context.Context, db *bun.DB) error {
	if _, err := db.Exec(`DROP TABLE IF EXISTS audit_logs`); err != nil {
		return fmt.Errorf("failed to drop audit_logs table: %w", err)
	}
	return nil
}
