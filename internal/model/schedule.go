package model

import (
	"time"

	"tablebook/internal/interval"
)

// AvailabilityWindow is a recurring weekly opening range of a table.
type AvailabilityWindow struct {
	ID        int64                 `json:"id"`
	TableID   int64                 `json:"table_id"`
	Weekday   int                   `json:"weekday"` // 0-6 (Sunday-Saturday)
	Range     interval.TimeInterval `json:"-"`
	IsActive  bool                  `json:"is_active"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ValidWeekday reports whether d is in 0..6.
func ValidWeekday(d int) bool {
	return d >= 0 && d <= 6
}
