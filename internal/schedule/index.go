// Package schedule answers weekly opening-hour questions for tables.
package schedule

import (
	"context"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

// WindowStore lists the active weekly windows of a table for a weekday.
type WindowStore interface {
	ListWindows(ctx context.Context, tableID int64, weekday int) ([]model.AvailabilityWindow, error)
}

// Index evaluates weekly availability. It holds no state beyond the store.
type Index struct {
	store WindowStore
}

// NewIndex creates a weekly availability index over store.
func NewIndex(store WindowStore) *Index {
	return &Index{store: store}
}

// OpenIntervals returns the merged opening ranges of a table on weekday.
// An empty result means the table is closed that day.
func (x *Index) OpenIntervals(ctx context.Context, tableID int64, weekday int) ([]interval.TimeInterval, error) {
	if !model.ValidWeekday(weekday) {
		return nil, model.Invalidf("weekday %d out of range", weekday)
	}

	windows, err := x.store.ListWindows(ctx, tableID, weekday)
	if err != nil {
		return nil, model.WrapStorage("list windows", err)
	}

	ranges := make([]interval.TimeInterval, 0, len(windows))
	for _, w := range windows {
		if !w.IsActive || w.TableID != tableID || w.Weekday != weekday {
			continue
		}
		ranges = append(ranges, w.Range)
	}
	return interval.Merge(ranges), nil
}

// IsOpen reports whether requested lies inside one merged opening range.
// Tables without windows for the weekday are closed.
func (x *Index) IsOpen(ctx context.Context, tableID int64, weekday int, requested interval.TimeInterval) (bool, error) {
	open, err := x.OpenIntervals(ctx, tableID, weekday)
	if err != nil {
		return false, err
	}
	for _, r := range open {
		if interval.Contains(r, requested) {
			return true, nil
		}
	}
	return false, nil
}
