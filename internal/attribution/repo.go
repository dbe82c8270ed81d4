package attribution

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
)

// Repository manages persistence for bill item attributions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.BillItemAttribution, error)
	DeleteByOrderItem(ctx context.Context, orderItemID uuid.UUID) error
	CreateBatch(ctx context.Context, rows []models.BillItemAttribution) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an attribution repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.BillItemAttribution, error) {
	var rows []models.BillItemAttribution
	if err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("percentage DESC, cast_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteByOrderItem(ctx context.Context, orderItemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Delete(&models.BillItemAttribution{}).Error
}

func (r *repository) CreateBatch(ctx context.Context, rows []models.BillItemAttribution) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}
