package ledger

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"tablebook/internal/events"
	"tablebook/internal/interval"
	"tablebook/internal/lock"
	"tablebook/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore mirrors the transactional sqlite store in memory.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Reservation
	err    error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]model.Reservation)}
}

func (m *memStore) ListReservations(_ context.Context, tableID int64, from, to time.Time, statuses []model.Status) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Reservation
	for _, r := range m.rows {
		if r.TableID == tableID && !r.Date.Before(from) && !r.Date.After(to) && model.HasStatus(statuses, r.Status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetReservation(_ context.Context, id int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) InsertReservation(_ context.Context, r *model.Reservation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, existing := range m.rows {
		if existing.IsActive() && existing.OverlapsWith(r) {
			return 0, model.ErrSlotTaken
		}
	}
	m.nextID++
	row := *r
	row.ID = m.nextID
	m.rows[row.ID] = row
	return row.ID, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id int64, from, to model.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	m.rows[id] = r
	return true, nil
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) IsTableAvailable(ctx context.Context, tableID int64, date time.Time, start interval.Clock, duration int, override bool) (bool, error) {
	args := m.Called(ctx, tableID, date, start, duration, override)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func newLedger(store Store, opts ...Option) *Ledger {
	logger := zerolog.New(io.Discard)
	return New(store, lock.NewLocal(time.Second), &logger, opts...)
}

func bookAt(hour, minute, duration int) BookRequest {
	return BookRequest{TableID: 1, Date: monday, Time: interval.NewClock(hour, minute), Duration: duration, Guests: 2}
}

func span(t *testing.T, start, end string) interval.TimeInterval {
	t.Helper()
	r, err := interval.ParseTimeInterval(start, end)
	require.NoError(t, err)
	return r
}

func TestBook_DoubleBookingRejected(t *testing.T) {
	ctx := context.Background()
	l := newLedger(newMemStore())

	first, err := l.Book(ctx, bookAt(19, 0, 90))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, first.Status)
	assert.NotZero(t, first.ID)

	_, err = l.Book(ctx, bookAt(19, 30, 60))
	assert.ErrorIs(t, err, model.ErrSlotTaken)

	// Touching the end of the first reservation is fine.
	_, err = l.Book(ctx, bookAt(20, 30, 60))
	assert.NoError(t, err)
}

func TestBook_Validation(t *testing.T) {
	l := newLedger(newMemStore())
	ctx := context.Background()

	tests := []struct {
		name string
		req  BookRequest
		want error
	}{
		{"zero date", BookRequest{TableID: 1, Time: interval.NewClock(19, 0), Duration: 60, Guests: 2}, model.ErrInvalidInput},
		{"zero duration", BookRequest{TableID: 1, Date: monday, Time: interval.NewClock(19, 0), Guests: 2}, model.ErrInvalidInput},
		{"no guests", BookRequest{TableID: 1, Date: monday, Time: interval.NewClock(19, 0), Duration: 60}, model.ErrInvalidInput},
		{"no table", BookRequest{Date: monday, Time: interval.NewClock(19, 0), Duration: 60, Guests: 2}, model.ErrInvalidInput},
		{"start past midnight", BookRequest{TableID: 1, Date: monday, Time: interval.NewClock(24, 0), Duration: 60, Guests: 2}, interval.ErrInvalidInterval},
		{"duration beyond a day", BookRequest{TableID: 1, Date: monday, Time: interval.NewClock(18, 0), Duration: 200_000_000, Guests: 2, Override: true}, interval.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Book(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l := newLedger(store)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Book(ctx, bookAt(19, 0, 60))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, taken int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrSlotTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, taken)
}

func TestBook_ValidatorRejects(t *testing.T) {
	ctx := context.Background()
	v := new(mockValidator)
	v.On("IsTableAvailable", ctx, int64(1), monday, interval.NewClock(23, 0), 60, false).Return(false, nil).Once()
	v.On("IsTableAvailable", ctx, int64(1), monday, interval.NewClock(23, 0), 60, true).Return(true, nil).Once()

	l := newLedger(newMemStore(), WithValidator(v))

	_, err := l.Book(ctx, bookAt(23, 0, 60))
	assert.ErrorIs(t, err, model.ErrUnavailable)

	req := bookAt(23, 0, 60)
	req.Override = true
	r, err := l.Book(ctx, req)
	require.NoError(t, err)
	assert.True(t, r.Override)
	v.AssertExpectations(t)
}

func TestBook_OversizedOverrideCannotDoubleBook(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l := newLedger(store)

	_, err := l.Book(ctx, bookAt(19, 0, 90))
	require.NoError(t, err)

	req := bookAt(18, 0, 200_000_000)
	req.Override = true
	_, err = l.Book(ctx, req)
	assert.ErrorIs(t, err, interval.ErrInvalidInterval)
	assert.Len(t, store.rows, 1)
}

func TestBook_RejectionKeepsStorageError(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	v := new(mockValidator)
	v.On("IsTableAvailable", ctx, int64(1), monday, interval.NewClock(19, 0), 60, false).Return(false, nil).Once()

	l := newLedger(store, WithValidator(v))
	store.err = errors.New("database is locked")

	_, err := l.Book(ctx, bookAt(19, 0, 60))
	require.Error(t, err)
	assert.True(t, model.IsStorage(err))
	assert.NotErrorIs(t, err, model.ErrUnavailable)
	v.AssertExpectations(t)
}

func TestBook_StoreFailureIsStorageError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk full")
	l := newLedger(store)

	_, err := l.Book(context.Background(), bookAt(19, 0, 60))
	assert.True(t, model.IsStorage(err))
}

func TestFindOverlapping(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l := newLedger(store)

	confirmed, err := l.Book(ctx, bookAt(19, 0, 90))
	require.NoError(t, err)
	_, err = l.SetStatus(ctx, confirmed.ID, "confirmed")
	require.NoError(t, err)

	cancelled, err := l.Book(ctx, bookAt(21, 0, 60))
	require.NoError(t, err)
	_, err = l.SetStatus(ctx, cancelled.ID, "cancelled")
	require.NoError(t, err)

	found, err := l.FindOverlapping(ctx, 1, monday, span(t, "19:30", "21:30"), model.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, confirmed.ID, found[0].ID)

	all, err := l.FindOverlapping(ctx, 1, monday, span(t, "19:30", "21:30"), model.AllStatuses)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	has, err := l.HasOverlap(ctx, 1, monday, span(t, "20:30", "21:30"))
	require.NoError(t, err)
	assert.False(t, has, "cancelled reservations never block")

	has, err = l.HasOverlap(ctx, 2, monday, span(t, "19:00", "20:00"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFindOverlapping_PreviousDaySpill(t *testing.T) {
	ctx := context.Background()
	l := newLedger(newMemStore())

	sunday := monday.AddDate(0, 0, -1)
	_, err := l.Book(ctx, BookRequest{TableID: 1, Date: sunday, Time: interval.NewClock(23, 30), Duration: 90, Guests: 4, Override: true})
	require.NoError(t, err)

	has, err := l.HasOverlap(ctx, 1, monday, span(t, "00:30", "01:30"))
	require.NoError(t, err)
	assert.True(t, has)

	has, err = l.HasOverlap(ctx, 1, monday, span(t, "01:00", "02:00"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFindOverlapping_NextDaySpill(t *testing.T) {
	ctx := context.Background()
	l := newLedger(newMemStore())

	tuesday := monday.AddDate(0, 0, 1)
	_, err := l.Book(ctx, BookRequest{TableID: 1, Date: tuesday, Time: interval.NewClock(0, 0), Duration: 60, Guests: 2, Override: true})
	require.NoError(t, err)

	late, err := interval.Slot(interval.NewClock(23, 30), 60)
	require.NoError(t, err)
	has, err := l.HasOverlap(ctx, 1, monday, late)
	require.NoError(t, err)
	assert.True(t, has)

	early, err := interval.Slot(interval.NewClock(23, 0), 60)
	require.NoError(t, err)
	has, err = l.HasOverlap(ctx, 1, monday, early)
	require.NoError(t, err)
	assert.False(t, has, "ends exactly at midnight")
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	l := newLedger(newMemStore(), WithPublisher(pub))

	r, err := l.Book(ctx, bookAt(19, 0, 60))
	require.NoError(t, err)

	updated, err := l.SetStatus(ctx, r.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, updated.Status)

	_, err = l.SetStatus(ctx, r.ID, "pending")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = l.SetStatus(ctx, r.ID, "seated")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = l.SetStatus(ctx, 999, "confirmed")
	assert.ErrorIs(t, err, model.ErrNotFound)

	done, err := l.SetStatus(ctx, r.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	_, err = l.SetStatus(ctx, r.ID, "cancelled")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	require.Len(t, pub.events, 3)
	assert.Equal(t, events.ReservationCreated, pub.events[0].Type)
	p, err := pub.events[2].Reservation()
	require.NoError(t, err)
	assert.Equal(t, "completed", p.Status)
	assert.Equal(t, "confirmed", p.Previous)
}

// staleStore reports the status as pending but refuses the compare-and-set.
type staleStore struct {
	*memStore
}

func (s staleStore) UpdateStatus(context.Context, int64, model.Status, model.Status) (bool, error) {
	return false, nil
}

func TestSetStatus_LostRace(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	l := newLedger(staleStore{mem})

	r, err := l.Book(ctx, bookAt(19, 0, 60))
	require.NoError(t, err)

	_, err = l.SetStatus(ctx, r.ID, "confirmed")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}
