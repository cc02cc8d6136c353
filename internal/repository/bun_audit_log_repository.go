package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/openinvoice/caminv-portal/internal/db/models"
)

// BunAuditLogRepository implements AuditLogRepository using Bun ORM
type BunAuditLogRepository struct {
	db *bun.DB
}

// NewBunAuditLogRepository creates a new Bun-based audit log repository
func NewBunAuditLogRepository(db *bun.DB) *BunAuditLogRepository {
	return &BunAuditLogRepository{db: db}
}

// Append inserts an audit entry. Entries are append-only; there is no update
// or delete path.
func (r *BunAuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	_, err := r.db.NewInsert().
		Model(entry).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// ListByTenant retrieves the most recent audit entries for a tenant
func (r *BunAuditLogRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.AuditLog
	err := r.db.NewSelect().
		Model(&entries).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
