package visits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
)

// Repository manages persistence for visits, table segments, and cast
// engagements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateVisit(ctx context.Context, visit *models.Visit) error
	FindVisitByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	UpdateVisit(ctx context.Context, visit *models.Visit) error
	CreateGuest(ctx context.Context, guest *models.VisitGuest) error

	CreateSegment(ctx context.Context, segment *models.TableSegment) error
	FindOpenSegment(ctx context.Context, visitID uuid.UUID) (*models.TableSegment, error)
	CloseOpenSegments(ctx context.Context, visitID uuid.UUID, at time.Time) error
	ListSegments(ctx context.Context, visitID uuid.UUID) ([]models.TableSegment, error)

	CreateEngagement(ctx context.Context, engagement *models.CastEngagement) error
	FindEngagementByID(ctx context.Context, id uuid.UUID) (*models.CastEngagement, error)
	FindActiveEngagement(ctx context.Context, visitID, castID uuid.UUID) (*models.CastEngagement, error)
	ListEngagements(ctx context.Context, visitID uuid.UUID, activeOnly bool) ([]models.CastEngagement, error)
	EndEngagement(ctx context.Context, id uuid.UUID, at time.Time) error
	ReassignEngagement(ctx context.Context, id, toVisitID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a visits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateVisit(ctx context.Context, visit *models.Visit) error {
	return r.db.WithContext(ctx).Create(visit).Error
}

func (r *repository) CreateGuest(ctx context.Context, guest *models.VisitGuest) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

func (r *repository) FindVisitByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	var visit models.Visit
	if err := r.db.WithContext(ctx).First(&visit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *repository) UpdateVisit(ctx context.Context, visit *models.Visit) error {
	return r.db.WithContext(ctx).Save(visit).Error
}

func (r *repository) CreateSegment(ctx context.Context, segment *models.TableSegment) error {
	return r.db.WithContext(ctx).Create(segment).Error
}

func (r *repository) FindOpenSegment(ctx context.Context, visitID uuid.UUID) (*models.TableSegment, error) {
	var segment models.TableSegment
	if err := r.db.WithContext(ctx).
		Where("visit_id = ? AND ended_at IS NULL", visitID).
		First(&segment).Error; err != nil {
		return nil, err
	}
	return &segment, nil
}

func (r *repository) CloseOpenSegments(ctx context.Context, visitID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.TableSegment{}).
		Where("visit_id = ? AND ended_at IS NULL", visitID).
		Update("ended_at", at).Error
}

func (r *repository) ListSegments(ctx context.Context, visitID uuid.UUID) ([]models.TableSegment, error) {
	var segments []models.TableSegment
	if err := r.db.WithContext(ctx).
		Where("visit_id = ?", visitID).
		Order("started_at ASC").
		Find(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *repository) CreateEngagement(ctx context.Context, engagement *models.CastEngagement) error {
	return r.db.WithContext(ctx).Create(engagement).Error
}

func (r *repository) FindEngagementByID(ctx context.Context, id uuid.UUID) (*models.CastEngagement, error) {
	var engagement models.CastEngagement
	if err := r.db.WithContext(ctx).First(&engagement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &engagement, nil
}

func (r *repository) FindActiveEngagement(ctx context.Context, visitID, castID uuid.UUID) (*models.CastEngagement, error) {
	var engagement models.CastEngagement
	if err := r.db.WithContext(ctx).
		Where("visit_id = ? AND cast_id = ? AND is_active", visitID, castID).
		First(&engagement).Error; err != nil {
		return nil, err
	}
	return &engagement, nil
}

func (r *repository) ListEngagements(ctx context.Context, visitID uuid.UUID, activeOnly bool) ([]models.CastEngagement, error) {
	query := r.db.WithContext(ctx).Where("visit_id = ?", visitID)
	if activeOnly {
		query = query.Where("is_active")
	}
	var engagements []models.CastEngagement
	if err := query.Order("started_at ASC").Find(&engagements).Error; err != nil {
		return nil, err
	}
	return engagements, nil
}

func (r *repository) EndEngagement(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CastEngagement{}).
		Where("id = ?", id).
		Updates(map[string]any{"ended_at": at, "is_active": false}).Error
}

func (r *repository) ReassignEngagement(ctx context.Context, id, toVisitID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CastEngagement{}).
		Where("id = ?", id).
		Update("visit_id", toVisitID).Error
}
