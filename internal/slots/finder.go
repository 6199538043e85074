// Package slots lists candidate start times for a table on a date.
package slots

import (
	"context"
	"fmt"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

// DefaultStep is the spacing between candidate starts, in minutes.
const DefaultStep = 30

// Slot is one candidate booking range.
type Slot struct {
	Start     interval.Clock
	End       interval.Clock
	Available bool
}

// SlotInfo is the wire representation of a slot.
type SlotInfo struct {
	Start     string `json:"start"` // "19:00"
	End       string `json:"end"`   // "20:30"
	Available bool   `json:"available"`
}

// OpenHours lists the merged weekly opening ranges of a table.
type OpenHours interface {
	OpenIntervals(ctx context.Context, tableID int64, weekday int) ([]interval.TimeInterval, error)
}

// Checker gives the engine verdict for one slot.
type Checker interface {
	IsTableAvailable(ctx context.Context, tableID int64, date time.Time, start interval.Clock, duration int, override bool) (bool, error)
}

// Finder generates candidate slots inside opening hours.
type Finder struct {
	hours   OpenHours
	checker Checker
	now     func() time.Time
}

// NewFinder creates a slot finder.
func NewFinder(hours OpenHours, checker Checker) *Finder {
	return &Finder{hours: hours, checker: checker, now: time.Now}
}

// FreeStarts walks every opening range in step increments and returns each
// start whose full duration fits the range, with the engine verdict. Starts
// already in the past are reported unavailable.
func (f *Finder) FreeStarts(ctx context.Context, tableID int64, date time.Time, duration, step int) ([]Slot, error) {
	if duration <= 0 || duration > interval.MaxDurationMinutes {
		return nil, model.Invalidf("duration must be between 1 and %d minutes, got %d", interval.MaxDurationMinutes, duration)
	}
	if step <= 0 {
		step = DefaultStep
	}

	day := interval.DateOf(date)
	open, err := f.hours.OpenIntervals(ctx, tableID, interval.Weekday(day))
	if err != nil {
		return nil, fmt.Errorf("open intervals: %w", err)
	}

	now := f.now()
	var out []Slot
	for _, r := range open {
		for cursor := r.Start; cursor+interval.Clock(duration) <= r.End; cursor += interval.Clock(step) {
			ok, err := f.checker.IsTableAvailable(ctx, tableID, day, cursor, duration, false)
			if err != nil {
				return nil, fmt.Errorf("check slot %s: %w", cursor, err)
			}

			isPast := cursor.On(day).Before(now)

			out = append(out, Slot{
				Start:     cursor,
				End:       cursor + interval.Clock(duration),
				Available: ok && !isPast,
			})
		}
	}
	return out, nil
}

// ToSlotInfo converts slots for the API.
func ToSlotInfo(slots []Slot) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Start:     s.Start.String(),
			End:       s.End.String(),
			Available: s.Available,
		}
	}
	return result
}

// AvailableOnly returns only available slots.
func AvailableOnly(slots []Slot) []Slot {
	var available []Slot
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// Consecutive groups available starts that follow each other by step minutes.
func Consecutive(slots []Slot, step int) [][]Slot {
	available := AvailableOnly(slots)
	if len(available) == 0 {
		return nil
	}

	var groups [][]Slot
	current := []Slot{available[0]}
	for _, s := range available[1:] {
		if s.Start == current[len(current)-1].Start+interval.Clock(step) {
			current = append(current, s)
			continue
		}
		groups = append(groups, current)
		current = []Slot{s}
	}
	return append(groups, current)
}

// FormatDuration formats minutes as "45 min", "1 h" or "1 h 30 min".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours, mins := minutes/60, minutes%60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
