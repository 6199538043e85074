package schedule

import (
	"context"
	"errors"
	"testing"

	"tablebook/internal/interval"
	"tablebook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWindowStore struct {
	mock.Mock
}

func (m *mockWindowStore) ListWindows(ctx context.Context, tableID int64, weekday int) ([]model.AvailabilityWindow, error) {
	args := m.Called(ctx, tableID, weekday)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AvailabilityWindow), args.Error(1)
}

func window(t *testing.T, tableID int64, weekday int, start, end string) model.AvailabilityWindow {
	t.Helper()
	r, err := interval.ParseTimeInterval(start, end)
	require.NoError(t, err)
	return model.AvailabilityWindow{TableID: tableID, Weekday: weekday, Range: r, IsActive: true}
}

func span(t *testing.T, start, end string) interval.TimeInterval {
	t.Helper()
	r, err := interval.ParseTimeInterval(start, end)
	require.NoError(t, err)
	return r
}

func TestIsOpen(t *testing.T) {
	ctx := context.Background()

	lunch := window(t, 1, 1, "12:00", "15:00")
	afternoon := window(t, 1, 1, "15:00", "18:00")
	inactive := window(t, 1, 1, "18:00", "23:00")
	inactive.IsActive = false

	store := new(mockWindowStore)
	store.On("ListWindows", ctx, int64(1), 1).Return([]model.AvailabilityWindow{lunch, afternoon, inactive}, nil)
	idx := NewIndex(store)

	tests := []struct {
		name      string
		requested interval.TimeInterval
		want      bool
	}{
		{"inside one window", span(t, "12:30", "13:30"), true},
		{"spans contiguous windows", span(t, "14:00", "16:00"), true},
		{"exact union", span(t, "12:00", "18:00"), true},
		{"before opening", span(t, "11:30", "12:30"), false},
		{"into inactive window", span(t, "17:30", "18:30"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, err := idx.IsOpen(ctx, 1, 1, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, open)
		})
	}
}

func TestIsOpen_ClosedByDefault(t *testing.T) {
	ctx := context.Background()
	store := new(mockWindowStore)
	store.On("ListWindows", ctx, int64(2), 0).Return(nil, nil).Once()

	open, err := NewIndex(store).IsOpen(ctx, 2, 0, span(t, "12:00", "13:00"))
	require.NoError(t, err)
	assert.False(t, open)
	store.AssertExpectations(t)
}

func TestOpenIntervals(t *testing.T) {
	ctx := context.Background()
	store := new(mockWindowStore)
	store.On("ListWindows", ctx, int64(1), 5).Return([]model.AvailabilityWindow{
		window(t, 1, 5, "18:00", "22:00"),
		window(t, 1, 5, "12:00", "15:00"),
		window(t, 1, 5, "21:00", "23:30"),
	}, nil).Once()

	open, err := NewIndex(store).OpenIntervals(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []interval.TimeInterval{span(t, "12:00", "15:00"), span(t, "18:00", "23:30")}, open)
}

func TestIsOpen_Errors(t *testing.T) {
	ctx := context.Background()
	store := new(mockWindowStore)
	store.On("ListWindows", ctx, int64(1), 3).Return(nil, errors.New("disk I/O error")).Once()
	idx := NewIndex(store)

	_, err := idx.IsOpen(ctx, 1, 3, span(t, "12:00", "13:00"))
	assert.True(t, model.IsStorage(err))

	_, err = idx.IsOpen(ctx, 1, 7, span(t, "12:00", "13:00"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
