package model

import (
	"time"

	"tablebook/internal/interval"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow}

// ActiveStatuses are the statuses that occupy a table.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// ParseStatus validates a status label.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", Invalidf("unknown status %q", s)
}

// Reservation is a booking of one table for a slot on a date.
type Reservation struct {
	ID            int64          `json:"id"`
	TableID       int64          `json:"table_id"`
	Date          time.Time      `json:"-"`
	Time          interval.Clock `json:"-"`
	Duration      int            `json:"duration"` // minutes
	Guests        int            `json:"guests"`
	Status        Status         `json:"status"`
	Override      bool           `json:"override"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Slot returns the occupied range [Time, Time+Duration).
func (r *Reservation) Slot() (interval.TimeInterval, error) {
	return interval.Slot(r.Time, r.Duration)
}

// End returns the clock the reservation releases the table.
func (r *Reservation) End() interval.Clock {
	return r.Time + interval.Clock(r.Duration)
}

// StartsAt returns the absolute start instant.
func (r *Reservation) StartsAt() time.Time {
	return r.Time.On(r.Date)
}

// EndsAt returns the absolute end instant.
func (r *Reservation) EndsAt() time.Time {
	return r.End().On(r.Date)
}

// OverlapsWith reports whether both reservations hold the same table at the same time.
// Uses half-open [start, end) semantics.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	if r.TableID != other.TableID {
		return false
	}
	return r.StartsAt().Before(other.EndsAt()) && other.StartsAt().Before(r.EndsAt())
}

// IsActive reports whether the reservation occupies its table.
func (r *Reservation) IsActive() bool {
	return HasStatus(ActiveStatuses, r.Status)
}

// HasStatus reports whether s is in set.
func HasStatus(set []Status, s Status) bool {
	for _, st := range set {
		if st == s {
			return true
		}
	}
	return false
}
