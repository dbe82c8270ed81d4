package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kagetora-io/clubledger-backend/pkg/enums"
)

// VisitGuest is one co-attending guest on a visit, either a known customer or
// an ad hoc name/phone. Exactly one guest per visit is main; at most one has
// is_primary_payer set. The running totals are maintained incrementally as
// order lines are assigned, not recomputed from history on read.
type VisitGuest struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VisitID            uuid.UUID       `gorm:"column:visit_id;type:uuid;not null"`
	CustomerID         *uuid.UUID      `gorm:"column:customer_id;type:uuid"`
	GuestName          *string         `gorm:"column:guest_name"`
	GuestPhone         *string         `gorm:"column:guest_phone"`
	GuestType          enums.GuestType `gorm:"column:guest_type;type:guest_type;not null"`
	SeatPosition       *string         `gorm:"column:seat_position"`
	RelationshipToMain *string         `gorm:"column:relationship_to_main"`
	IsPrimaryPayer     bool            `gorm:"column:is_primary_payer;not null;default:false"`
	Subtotal           int64           `gorm:"column:subtotal;not null;default:0"`
	ServiceAmount      int64           `gorm:"column:service_amount;not null;default:0"`
	TaxAmount          int64           `gorm:"column:tax_amount;not null;default:0"`
	Total              int64           `gorm:"column:total;not null;default:0"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
