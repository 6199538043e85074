package model

import "time"

// Area groups saloons (terrace, ground floor, ...). The engine never reads it.
type Area struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Saloon struct {
	ID        int64     `json:"id"`
	AreaID    int64     `json:"area_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Table is a bookable physical table.
type Table struct {
	ID        int64     `json:"id"`
	SaloonID  int64     `json:"saloon_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Seats reports whether the table can take a party of guests.
func (t *Table) Seats(guests int) bool {
	return t.IsActive && t.Capacity >= guests
}
