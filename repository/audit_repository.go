package repository

import (
	"context"

	"github.com/Templasan/MarketPlacer/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository only ever inserts; audit rows are never updated or deleted.
type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Append(ctx context.Context, entry *models.OrderStatusAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormAuditRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusAudit, error) {
	var entries []models.OrderStatusAudit
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("at ASC").
		Find(&entries).Error
	return entries, err
}
