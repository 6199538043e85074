// Package ledger owns the reservation records and their write path.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/booking"
	"tablebook/internal/events"
	"tablebook/internal/interval"
	"tablebook/internal/lock"
	"tablebook/internal/model"

	"github.com/rs/zerolog"
)

// Store is the persistence the ledger needs.
type Store interface {
	// ListReservations returns reservations of a table dated within [from, to]
	// whose status is in statuses.
	ListReservations(ctx context.Context, tableID int64, from, to time.Time, statuses []model.Status) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	// InsertReservation re-checks for active overlaps and inserts atomically,
	// returning model.ErrSlotTaken on conflict.
	InsertReservation(ctx context.Context, r *model.Reservation) (int64, error)
	// UpdateStatus moves id from -> to only if the stored status is still from.
	UpdateStatus(ctx context.Context, id int64, from, to model.Status) (bool, error)
}

// Validator re-checks opening hours and blocks before a booking is written.
type Validator interface {
	IsTableAvailable(ctx context.Context, tableID int64, date time.Time, start interval.Clock, duration int, override bool) (bool, error)
}

// Publisher receives lifecycle events.
type Publisher interface {
	Publish(events.Event)
}

// Observer is notified of write-path outcomes. metrics implements it.
type Observer interface {
	ObserveLockWait(d time.Duration)
	ReservationCreated(result string)
	StatusChanged(status string)
}

// Ledger answers overlap queries and serializes writes.
type Ledger struct {
	store     Store
	locker    lock.Locker
	validator Validator
	publisher Publisher
	observer  Observer
	fsm       *booking.FSM
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithValidator makes Book re-run the availability checks.
func WithValidator(v Validator) Option {
	return func(l *Ledger) { l.validator = v }
}

// WithPublisher sends lifecycle events to p.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithObserver reports write-path outcomes to o.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// New creates a ledger. A nil locker falls back to an in-process one.
func New(store Store, locker lock.Locker, logger *zerolog.Logger, opts ...Option) *Ledger {
	if locker == nil {
		locker = lock.NewLocal(5 * time.Second)
	}
	l := &Ledger{
		store:  store,
		locker: locker,
		fsm:    booking.NewFSM(),
		logger: logger.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetValidator wires the availability engine after construction, since the
// engine itself reads through the ledger.
func (l *Ledger) SetValidator(v Validator) {
	l.validator = v
}

// FindOverlapping returns reservations of the table whose slot overlaps requested
// on date and whose status is in statuses. Reservations of the previous day that
// run past midnight are considered too, as are next-day reservations a
// past-midnight request runs into.
func (l *Ledger) FindOverlapping(ctx context.Context, tableID int64, date time.Time, requested interval.TimeInterval, statuses []model.Status) ([]model.Reservation, error) {
	if date.IsZero() {
		return nil, model.Invalidf("date is required")
	}
	if len(statuses) == 0 {
		return nil, nil
	}

	day := interval.DateOf(date)
	last := day
	if requested.End > interval.MinutesPerDay {
		last = day.AddDate(0, 0, 1)
	}
	candidates, err := l.store.ListReservations(ctx, tableID, day.AddDate(0, 0, -1), last, statuses)
	if err != nil {
		return nil, model.WrapStorage("list reservations", err)
	}

	start, end := requested.Start.On(day), requested.End.On(day)
	var out []model.Reservation
	for i := range candidates {
		r := candidates[i]
		if r.TableID != tableID || !model.HasStatus(statuses, r.Status) {
			continue
		}
		if r.StartsAt().Before(end) && start.Before(r.EndsAt()) {
			out = append(out, r)
		}
	}
	return out, nil
}

// HasOverlap reports whether an active reservation overlaps requested.
func (l *Ledger) HasOverlap(ctx context.Context, tableID int64, date time.Time, requested interval.TimeInterval) (bool, error) {
	found, err := l.FindOverlapping(ctx, tableID, date, requested, model.ActiveStatuses)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// Get loads a reservation by id.
func (l *Ledger) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	if id <= 0 {
		return nil, model.Invalidf("reservation id must be positive")
	}
	r, err := l.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.WrapStorage("get reservation", err)
	}
	return r, nil
}

// BookRequest describes a reservation to create.
type BookRequest struct {
	TableID       int64
	Date          time.Time
	Time          interval.Clock
	Duration      int
	Guests        int
	Override      bool
	CustomerName  string
	CustomerPhone string
	Notes         string
}

func (req *BookRequest) validate() (interval.TimeInterval, error) {
	if req.TableID <= 0 {
		return interval.TimeInterval{}, model.Invalidf("table id must be positive")
	}
	if req.Date.IsZero() {
		return interval.TimeInterval{}, model.Invalidf("date is required")
	}
	if req.Duration <= 0 {
		return interval.TimeInterval{}, model.Invalidf("duration must be positive")
	}
	if req.Guests <= 0 {
		return interval.TimeInterval{}, model.Invalidf("guests must be positive")
	}
	return interval.Slot(req.Time, req.Duration)
}

// Book creates a pending reservation. Hours and blocks are enforced unless
// req.Override; double booking is always rejected with model.ErrSlotTaken.
func (l *Ledger) Book(ctx context.Context, req BookRequest) (*model.Reservation, error) {
	slot, err := req.validate()
	if err != nil {
		return nil, err
	}
	date := interval.DateOf(req.Date)

	if l.validator != nil {
		ok, err := l.validator.IsTableAvailable(ctx, req.TableID, date, req.Time, req.Duration, req.Override)
		if err != nil {
			l.observeCreated("error")
			return nil, err
		}
		if !ok {
			taken, err := l.HasOverlap(ctx, req.TableID, date, slot)
			if err != nil {
				l.observeCreated("error")
				return nil, err
			}
			if taken {
				l.observeCreated("conflict")
				return nil, fmt.Errorf("%w: table %d at %s %s", model.ErrSlotTaken, req.TableID, interval.FormatDate(date), req.Time)
			}
			l.observeCreated("unavailable")
			return nil, fmt.Errorf("%w: table %d at %s %s", model.ErrUnavailable, req.TableID, interval.FormatDate(date), req.Time)
		}
	}

	waitStart := l.now()
	release, err := l.locker.Acquire(ctx, lock.SlotKey(req.TableID, date))
	if l.observer != nil {
		l.observer.ObserveLockWait(l.now().Sub(waitStart))
	}
	if err != nil {
		l.observeCreated("error")
		return nil, model.WrapStorage("acquire slot lock", err)
	}
	defer release()

	now := l.now()
	r := &model.Reservation{
		TableID:       req.TableID,
		Date:          date,
		Time:          req.Time,
		Duration:      req.Duration,
		Guests:        req.Guests,
		Status:        l.fsm.Initial(),
		Override:      req.Override,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	id, err := l.store.InsertReservation(ctx, r)
	if err != nil {
		if errors.Is(err, model.ErrSlotTaken) {
			l.observeCreated("conflict")
			return nil, err
		}
		l.observeCreated("error")
		return nil, model.WrapStorage("insert reservation", err)
	}
	r.ID = id
	l.observeCreated("created")

	l.logger.Info().
		Int64("reservation_id", r.ID).
		Int64("table_id", r.TableID).
		Str("date", interval.FormatDate(r.Date)).
		Str("time", r.Time.String()).
		Int("duration", r.Duration).
		Bool("override", r.Override).
		Msg("reservation created")

	l.publish(events.ReservationCreated, r, "")
	return r, nil
}

// SetStatus moves a reservation through the status machine.
func (l *Ledger) SetStatus(ctx context.Context, id int64, status string) (*model.Reservation, error) {
	to, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	r, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := r.Status
	if _, err := l.fsm.Transition(from, to); err != nil {
		return nil, err
	}

	ok, err := l.store.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, model.WrapStorage("update status", err)
	}
	if !ok {
		// Someone else changed it between our read and write.
		return nil, fmt.Errorf("%w: reservation %d is no longer %s", model.ErrInvalidTransition, id, from)
	}

	r.Status = to
	r.UpdatedAt = l.now()
	if l.observer != nil {
		l.observer.StatusChanged(string(to))
	}

	l.logger.Info().
		Int64("reservation_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("reservation status changed")

	l.publish(events.ReservationStatusChanged, r, from)
	return r, nil
}

func (l *Ledger) observeCreated(result string) {
	if l.observer != nil {
		l.observer.ReservationCreated(result)
	}
}

func (l *Ledger) publish(eventType string, r *model.Reservation, previous model.Status) {
	if l.publisher == nil {
		return
	}
	ev, err := events.NewReservationEvent(eventType, events.ReservationPayload{
		ReservationID: r.ID,
		TableID:       r.TableID,
		Date:          interval.FormatDate(r.Date),
		Time:          r.Time.String(),
		Duration:      r.Duration,
		Status:        string(r.Status),
		Previous:      string(previous),
		Override:      r.Override,
	})
	if err != nil {
		l.logger.Error().Err(err).Str("type", eventType).Msg("encode event")
		return
	}
	l.publisher.Publish(ev)
}
