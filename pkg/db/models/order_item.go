package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kagetora-io/clubledger-backend/pkg/enums"
)

// OrderItem is one billed line on a visit. Rows are immutable once written;
// corrections create a replacement row pointing back at the original via
// corrects_item_id and stamp the original with corrected_at.
type OrderItem struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VisitID        uuid.UUID           `gorm:"column:visit_id;type:uuid;not null"`
	ProductID      *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	Name           string              `gorm:"column:name;not null"`
	LineType       enums.QuoteLineType `gorm:"column:line_type;type:quote_line_type;not null;default:'drink'"`
	TargetCastID   *uuid.UUID          `gorm:"column:target_cast_id;type:uuid"`
	Quantity       int                 `gorm:"column:quantity;not null;default:1"`
	UnitPrice      int64               `gorm:"column:unit_price;not null"`
	Total          int64               `gorm:"column:total;not null"`
	PlacedAt       time.Time           `gorm:"column:placed_at;not null"`
	CorrectsItemID *uuid.UUID          `gorm:"column:corrects_item_id;type:uuid"`
	CorrectedAt    *time.Time          `gorm:"column:corrected_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
