package model

import (
	"fmt"
	"time"

	"tablebook/internal/interval"
)

// ScopeType is the granularity a block applies to.
type ScopeType string

const (
	ScopeRestaurant ScopeType = "restaurant"
	ScopeSaloon     ScopeType = "saloon"
	ScopeTable      ScopeType = "table"
)

// Specificity orders scopes from most to least specific.
func (s ScopeType) Specificity() int {
	switch s {
	case ScopeTable:
		return 0
	case ScopeSaloon:
		return 1
	case ScopeRestaurant:
		return 2
	default:
		return 3
	}
}

// ParseScopeType validates a stored scope label.
func ParseScopeType(s string) (ScopeType, error) {
	switch ScopeType(s) {
	case ScopeRestaurant, ScopeSaloon, ScopeTable:
		return ScopeType(s), nil
	}
	return "", Invalidf("unknown block scope %q", s)
}

// Scope identifies what a block covers. RefID is zero for restaurant scope.
type Scope struct {
	Type  ScopeType `json:"type"`
	RefID int64     `json:"ref_id,omitempty"`
}

func RestaurantScope() Scope { return Scope{Type: ScopeRestaurant} }
func SaloonScope(id int64) Scope { return Scope{Type: ScopeSaloon, RefID: id} }
func TableScope(id int64) Scope { return Scope{Type: ScopeTable, RefID: id} }

// Validate checks the reference id matches the scope type.
func (s Scope) Validate() error {
	switch s.Type {
	case ScopeRestaurant:
		if s.RefID != 0 {
			return Invalidf("restaurant scope takes no reference id")
		}
	case ScopeSaloon, ScopeTable:
		if s.RefID <= 0 {
			return Invalidf("%s scope requires a reference id", s.Type)
		}
	default:
		return Invalidf("unknown block scope %q", s.Type)
	}
	return nil
}

// Covers reports whether the scope applies to a table located in saloonID.
func (s Scope) Covers(tableID, saloonID int64) bool {
	switch s.Type {
	case ScopeRestaurant:
		return true
	case ScopeSaloon:
		return s.RefID == saloonID
	case ScopeTable:
		return s.RefID == tableID
	}
	return false
}

func (s Scope) String() string {
	if s.Type == ScopeRestaurant {
		return string(s.Type)
	}
	return fmt.Sprintf("%s:%d", s.Type, s.RefID)
}

// Block is an ad-hoc exclusion of a date/time range.
type Block struct {
	ID        int64                 `json:"id"`
	Scope     Scope                 `json:"scope"`
	Dates     interval.DateInterval `json:"-"`
	Range     interval.TimeInterval `json:"-"`
	Reason    string                `json:"reason"`
	IsActive  bool                  `json:"is_active"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Applies reports whether the block excludes requested on date for the given table.
func (b *Block) Applies(tableID, saloonID int64, date time.Time, requested interval.TimeInterval) bool {
	return b.IsActive &&
		b.Scope.Covers(tableID, saloonID) &&
		interval.DateInRange(date, b.Dates) &&
		interval.Overlaps(b.Range, requested)
}
