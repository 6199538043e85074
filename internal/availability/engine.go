// Package availability decides whether tables can be booked for a slot.
//
// The engine combines three sources: weekly opening windows, ad-hoc blocks
// and existing reservations. Queries are read-only and safe for concurrent
// use; serialization of writes happens in the ledger.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"

	"github.com/rs/zerolog"
)

// Catalog resolves tables.
type Catalog interface {
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	ListActiveTables(ctx context.Context) ([]model.Table, error)
}

// Hours answers weekly opening-hour questions.
type Hours interface {
	IsOpen(ctx context.Context, tableID int64, weekday int, requested interval.TimeInterval) (bool, error)
}

// Blocks answers ad-hoc closure questions.
type Blocks interface {
	IsBlocked(ctx context.Context, tableID, saloonID int64, date time.Time, requested interval.TimeInterval) (bool, error)
	ListBlocking(ctx context.Context, tableID, saloonID int64, date time.Time, requested interval.TimeInterval) ([]model.Block, error)
}

// Reservations answers overlap questions.
type Reservations interface {
	FindOverlapping(ctx context.Context, tableID int64, date time.Time, requested interval.TimeInterval, statuses []model.Status) ([]model.Reservation, error)
	HasOverlap(ctx context.Context, tableID int64, date time.Time, requested interval.TimeInterval) (bool, error)
}

// Observer counts engine verdicts.
type Observer interface {
	AvailabilityChecked(result string)
}

// Engine is the availability engine.
type Engine struct {
	catalog      Catalog
	hours        Hours
	blocks       Blocks
	reservations Reservations
	observer     Observer
	logger       zerolog.Logger
}

// NewEngine wires the engine to its indices.
func NewEngine(catalog Catalog, hours Hours, blocks Blocks, reservations Reservations, logger *zerolog.Logger) *Engine {
	return &Engine{
		catalog:      catalog,
		hours:        hours,
		blocks:       blocks,
		reservations: reservations,
		logger:       logger.With().Str("component", "availability").Logger(),
	}
}

// SetObserver reports verdicts to o.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

type query struct {
	date time.Time
	slot interval.TimeInterval
}

func newQuery(date time.Time, start interval.Clock, duration int) (query, error) {
	if date.IsZero() {
		return query{}, model.Invalidf("date is required")
	}
	if duration <= 0 {
		return query{}, model.Invalidf("duration must be positive, got %d", duration)
	}
	slot, err := interval.Slot(start, duration)
	if err != nil {
		return query{}, err
	}
	return query{date: interval.DateOf(date), slot: slot}, nil
}

func (e *Engine) table(ctx context.Context, id int64) (*model.Table, error) {
	t, err := e.catalog.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.WrapStorage("get table", err)
	}
	if t == nil || !t.IsActive {
		return nil, fmt.Errorf("%w: table %d is not active", model.ErrNotFound, id)
	}
	return t, nil
}

// IsTableAvailable reports whether the table may be booked for [start, start+duration)
// on date. Override skips opening hours and blocks but never existing reservations.
func (e *Engine) IsTableAvailable(ctx context.Context, tableID int64, date time.Time, start interval.Clock, duration int, override bool) (bool, error) {
	q, err := newQuery(date, start, duration)
	if err != nil {
		return false, err
	}

	t, err := e.table(ctx, tableID)
	if err != nil {
		return false, err
	}

	ok, err := e.evaluate(ctx, t, q, override)
	if err != nil {
		e.observe("error")
		return false, err
	}
	if ok {
		e.observe("available")
	} else {
		e.observe("unavailable")
	}
	return ok, nil
}

func (e *Engine) evaluate(ctx context.Context, t *model.Table, q query, override bool) (bool, error) {
	if !override {
		open, err := e.hours.IsOpen(ctx, t.ID, interval.Weekday(q.date), q.slot)
		if err != nil {
			return false, err
		}
		if !open {
			return false, nil
		}

		blocked, err := e.blocks.IsBlocked(ctx, t.ID, t.SaloonID, q.date, q.slot)
		if err != nil {
			return false, err
		}
		if blocked {
			return false, nil
		}
	}

	taken, err := e.reservations.HasOverlap(ctx, t.ID, q.date, q.slot)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// ListAvailableTables returns active tables seating guests that are available
// for the slot, ordered by id. An empty list is not an error.
func (e *Engine) ListAvailableTables(ctx context.Context, date time.Time, start interval.Clock, duration, guests int, override bool) ([]model.Table, error) {
	if guests <= 0 {
		return nil, model.Invalidf("guests must be positive, got %d", guests)
	}
	q, err := newQuery(date, start, duration)
	if err != nil {
		return nil, err
	}

	tables, err := e.catalog.ListActiveTables(ctx)
	if err != nil {
		return nil, model.WrapStorage("list tables", err)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })

	out := make([]model.Table, 0, len(tables))
	for i := range tables {
		t := &tables[i]
		if !t.Seats(guests) {
			continue
		}
		ok, err := e.evaluate(ctx, t, q, override)
		if err != nil {
			e.observe("error")
			return nil, err
		}
		if ok {
			out = append(out, *t)
		}
	}

	e.logger.Debug().
		Str("date", interval.FormatDate(q.date)).
		Str("slot", q.slot.String()).
		Int("guests", guests).
		Bool("override", override).
		Int("available", len(out)).
		Msg("listed available tables")
	e.observe("list")
	return out, nil
}

// Check is the itemized verdict for one table and slot.
type Check struct {
	IsAvailable       bool
	IsAvailableDay    bool // the weekly schedule covers the slot
	HasBlocks         bool
	Blocks            []model.Block
	OtherReservations []model.Reservation
}

// CheckTable explains why a table is or is not available for the slot.
func (e *Engine) CheckTable(ctx context.Context, tableID int64, date time.Time, start interval.Clock, duration int) (*Check, error) {
	q, err := newQuery(date, start, duration)
	if err != nil {
		return nil, err
	}
	t, err := e.table(ctx, tableID)
	if err != nil {
		return nil, err
	}

	open, err := e.hours.IsOpen(ctx, t.ID, interval.Weekday(q.date), q.slot)
	if err != nil {
		return nil, err
	}
	blocking, err := e.blocks.ListBlocking(ctx, t.ID, t.SaloonID, q.date, q.slot)
	if err != nil {
		return nil, err
	}
	others, err := e.reservations.FindOverlapping(ctx, t.ID, q.date, q.slot, model.ActiveStatuses)
	if err != nil {
		return nil, err
	}

	c := &Check{
		IsAvailableDay:    open,
		HasBlocks:         len(blocking) > 0,
		Blocks:            blocking,
		OtherReservations: others,
	}
	c.IsAvailable = c.IsAvailableDay && !c.HasBlocks && len(others) == 0
	if c.IsAvailable {
		e.observe("available")
	} else {
		e.observe("unavailable")
	}
	return c, nil
}

func (e *Engine) observe(result string) {
	if e.observer != nil {
		e.observer.AvailabilityChecked(result)
	}
}
