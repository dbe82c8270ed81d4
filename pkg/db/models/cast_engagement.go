package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kagetora-io/clubledger-backend/pkg/enums"
)

// CastEngagement is the interval a cast member is actively attending a visit.
// A (visit, cast) pair has at most one row with is_active = true; the partial
// unique index cast_engagements_one_active_per_pair is the authoritative guard.
// Ended engagements are terminal and are never reactivated.
type CastEngagement struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VisitID          uuid.UUID            `gorm:"column:visit_id;type:uuid;not null"`
	CastID           uuid.UUID            `gorm:"column:cast_id;type:uuid;not null"`
	Role             enums.EngagementRole `gorm:"column:role;type:engagement_role;not null"`
	NominationTypeID *uuid.UUID           `gorm:"column:nomination_type_id;type:uuid"`
	StartedAt        time.Time            `gorm:"column:started_at;not null"`
	EndedAt          *time.Time           `gorm:"column:ended_at"`
	IsActive         bool                 `gorm:"column:is_active;not null;default:true"`
	FeeAmount        int64                `gorm:"column:fee_amount;not null;default:0"`
	BackPercentage   decimal.Decimal      `gorm:"column:back_percentage;type:numeric(5,2);not null;default:0"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
