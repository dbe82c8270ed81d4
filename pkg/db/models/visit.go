package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kagetora-io/clubledger-backend/pkg/enums"
)

// Visit is one continuous guest stay from check-in to checkout.
type Visit struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrimaryGuestID    *uuid.UUID        `gorm:"column:primary_guest_id;type:uuid"`
	SeatingPlanCode   string            `gorm:"column:seating_plan_code;not null"`
	CheckInAt         time.Time         `gorm:"column:check_in_at;not null"`
	CheckOutAt        *time.Time        `gorm:"column:check_out_at"`
	GuestCount        int               `gorm:"column:guest_count;not null;default:1"`
	IsGroupVisit      bool              `gorm:"column:is_group_visit;not null;default:false"`
	Status            enums.VisitStatus `gorm:"column:status;type:visit_status;not null;default:'active'"`
	MergedIntoVisitID *uuid.UUID        `gorm:"column:merged_into_visit_id;type:uuid"`
	TableSegments     []TableSegment    `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE"`
	CastEngagements   []CastEngagement  `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE"`
	Guests            []VisitGuest      `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
