package guestorders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
)

// Repository manages persistence for visit guests and per-guest order shares.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateGuest(ctx context.Context, guest *models.VisitGuest) error
	FindGuestByID(ctx context.Context, id uuid.UUID) (*models.VisitGuest, error)
	ListGuestsByVisit(ctx context.Context, visitID uuid.UUID) ([]models.VisitGuest, error)
	ClearPrimaryPayer(ctx context.Context, visitID uuid.UUID) error
	SetPrimaryPayer(ctx context.Context, guestID uuid.UUID) error
	UpdateGuestTotals(ctx context.Context, guest *models.VisitGuest) error
	IncrementGuestCount(ctx context.Context, visitID uuid.UUID) error

	CreateShares(ctx context.Context, shares []models.GuestOrderShare) error
	ListSharesByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.GuestOrderShare, error)
	ListSharesByGuest(ctx context.Context, guestID uuid.UUID) ([]models.GuestOrderShare, error)
	DeleteSharesByOrderItem(ctx context.Context, orderItemID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a guest order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateGuest(ctx context.Context, guest *models.VisitGuest) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

func (r *repository) FindGuestByID(ctx context.Context, id uuid.UUID) (*models.VisitGuest, error) {
	var guest models.VisitGuest
	if err := r.db.WithContext(ctx).First(&guest, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *repository) ListGuestsByVisit(ctx context.Context, visitID uuid.UUID) ([]models.VisitGuest, error) {
	var guests []models.VisitGuest
	if err := r.db.WithContext(ctx).
		Where("visit_id = ?", visitID).
		Order("created_at ASC").
		Find(&guests).Error; err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *repository) ClearPrimaryPayer(ctx context.Context, visitID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.VisitGuest{}).
		Where("visit_id = ? AND is_primary_payer = ?", visitID, true).
		Update("is_primary_payer", false).Error
}

func (r *repository) SetPrimaryPayer(ctx context.Context, guestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.VisitGuest{}).
		Where("id = ?", guestID).
		Update("is_primary_payer", true).Error
}

func (r *repository) UpdateGuestTotals(ctx context.Context, guest *models.VisitGuest) error {
	return r.db.WithContext(ctx).
		Model(&models.VisitGuest{}).
		Where("id = ?", guest.ID).
		Updates(map[string]interface{}{
			"subtotal":       guest.Subtotal,
			"service_amount": guest.ServiceAmount,
			"tax_amount":     guest.TaxAmount,
			"total":          guest.Total,
		}).Error
}

func (r *repository) IncrementGuestCount(ctx context.Context, visitID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Visit{}).
		Where("id = ?", visitID).
		Updates(map[string]interface{}{
			"guest_count":    gorm.Expr("guest_count + 1"),
			"is_group_visit": true,
		}).Error
}

func (r *repository) CreateShares(ctx context.Context, shares []models.GuestOrderShare) error {
	if len(shares) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&shares).Error
}

func (r *repository) ListSharesByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.GuestOrderShare, error) {
	var shares []models.GuestOrderShare
	if err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("amount_for_guest DESC, visit_guest_id ASC").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *repository) ListSharesByGuest(ctx context.Context, guestID uuid.UUID) ([]models.GuestOrderShare, error) {
	var shares []models.GuestOrderShare
	if err := r.db.WithContext(ctx).
		Where("visit_guest_id = ?", guestID).
		Order("created_at ASC").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *repository) DeleteSharesByOrderItem(ctx context.Context, orderItemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Delete(&models.GuestOrderShare{}).Error
}
