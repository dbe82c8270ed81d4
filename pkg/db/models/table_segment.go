package models

import (
	"time"

	"github.com/google/uuid"
)

// TableSegment is the interval a visit occupies a specific table. At most one
// segment per visit has a null ended_at; the partial unique index
// table_segments_one_open_per_visit enforces it.
type TableSegment struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VisitID   uuid.UUID  `gorm:"column:visit_id;type:uuid;not null"`
	TableID   uuid.UUID  `gorm:"column:table_id;type:uuid;not null"`
	StartedAt time.Time  `gorm:"column:started_at;not null"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
