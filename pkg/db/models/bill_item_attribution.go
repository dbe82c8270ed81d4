package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kagetora-io/clubledger-backend/pkg/enums"
)

// BillItemAttribution credits a percentage of one order item's revenue to one
// cast member. The full set for an order item sums to 100 and reconciles
// exactly to the item total after the remainder rule; partial sets are never
// committed.
type BillItemAttribution struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID uuid.UUID             `gorm:"column:order_item_id;type:uuid;not null"`
	CastID      uuid.UUID             `gorm:"column:cast_id;type:uuid;not null"`
	Percentage  decimal.Decimal       `gorm:"column:percentage;type:numeric(5,2);not null"`
	Amount      int64                 `gorm:"column:amount;not null"`
	Type        enums.AttributionType `gorm:"column:type;type:attribution_type;not null"`
	IsPrimary   bool                  `gorm:"column:is_primary;not null;default:false"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
