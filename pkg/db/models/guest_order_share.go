package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GuestOrderShare allocates part (or all) of an order item to one visit guest.
// For a shared item the percentages across guests sum to 100 and the amounts
// reconcile exactly to the order item total.
type GuestOrderShare struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID      uuid.UUID        `gorm:"column:order_item_id;type:uuid;not null"`
	VisitGuestID     uuid.UUID        `gorm:"column:visit_guest_id;type:uuid;not null"`
	QuantityForGuest decimal.Decimal  `gorm:"column:quantity_for_guest;type:numeric(8,2);not null"`
	AmountForGuest   int64            `gorm:"column:amount_for_guest;not null"`
	IsSharedItem     bool             `gorm:"column:is_shared_item;not null;default:false"`
	SharedPercentage *decimal.Decimal `gorm:"column:shared_percentage;type:numeric(5,2)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
