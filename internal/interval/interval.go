// Package interval provides wall-clock and calendar ranges used by the availability engine.
package interval

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is returned for empty or inverted ranges.
var ErrInvalidInterval = errors.New("invalid interval")

const (
	// MinutesPerDay is the exclusive upper bound for a start clock.
	MinutesPerDay = 24 * 60

	// MaxDurationMinutes caps a booking slot so it ends before the next day is over.
	MaxDurationMinutes = MinutesPerDay

	// DateLayout is the calendar date wire format.
	DateLayout = "2006-01-02"
)

// Clock is a wall-clock time expressed in minutes since midnight.
type Clock int

// NewClock builds a clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM" or "HH:MM:SS". "24:00" is accepted as the end of the day.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}

	second := 0
	if len(parts) == 3 {
		if second, err = strconv.Atoi(parts[2]); err != nil {
			return 0, fmt.Errorf("invalid second: %w", err)
		}
	}

	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || second < 0 || second > 59 ||
		(hour == 24 && (minute != 0 || second != 0)) {
		return 0, fmt.Errorf("time out of range: %q", s)
	}

	return NewClock(hour, minute), nil
}

// String formats the clock as "HH:MM". Values past midnight keep counting hours.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On anchors the clock to the calendar day of date.
func (c Clock) On(date time.Time) time.Time {
	d := DateOf(date)
	return d.Add(time.Duration(c) * time.Minute)
}

// TimeInterval is a half-open wall-clock range [Start, End).
type TimeInterval struct {
	Start Clock
	End   Clock
}

// NewTimeInterval validates and returns [start, end).
func NewTimeInterval(start, end Clock) (TimeInterval, error) {
	if start < 0 || start >= MinutesPerDay {
		return TimeInterval{}, fmt.Errorf("%w: start %s outside the day", ErrInvalidInterval, start)
	}
	if start >= end {
		return TimeInterval{}, fmt.Errorf("%w: start %s not before end %s", ErrInvalidInterval, start, end)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// ParseTimeInterval parses two "HH:MM" values into a range that ends no later than 24:00.
func ParseTimeInterval(start, end string) (TimeInterval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeInterval{}, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeInterval{}, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	return NewTimeInterval(s, e)
}

// Slot returns the occupancy range [start, start+duration) of a booking.
// Durations above MaxDurationMinutes are rejected.
func Slot(start Clock, durationMinutes int) (TimeInterval, error) {
	if durationMinutes <= 0 {
		return TimeInterval{}, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidInterval, durationMinutes)
	}
	if durationMinutes > MaxDurationMinutes {
		return TimeInterval{}, fmt.Errorf("%w: duration %d exceeds %d minutes", ErrInvalidInterval, durationMinutes, MaxDurationMinutes)
	}
	return NewTimeInterval(start, start+Clock(durationMinutes))
}

// Minutes returns the length of the range.
func (t TimeInterval) Minutes() int {
	return int(t.End - t.Start)
}

func (t TimeInterval) String() string {
	return t.Start.String() + "-" + t.End.String()
}

// Overlaps reports whether a and b share any instant. Touching ranges do not overlap.
func Overlaps(a, b TimeInterval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether inner lies wholly inside outer.
func Contains(outer, inner TimeInterval) bool {
	return outer.Start <= inner.Start && inner.End <= outer.End
}

// Merge sorts ranges by start and coalesces overlapping and adjacent ones.
func Merge(ranges []TimeInterval) []TimeInterval {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]TimeInterval, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := []TimeInterval{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// CoveredBy reports whether requested fits inside a single range of the merged union of ranges.
func CoveredBy(ranges []TimeInterval, requested TimeInterval) bool {
	for _, r := range Merge(ranges) {
		if Contains(r, requested) {
			return true
		}
	}
	return false
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q; expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate formats a calendar date as "YYYY-MM-DD".
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// DateInterval is an inclusive calendar range [Start, End].
type DateInterval struct {
	Start time.Time
	End   time.Time
}

// NewDateInterval validates and returns [start, end]. Time of day is discarded.
func NewDateInterval(start, end time.Time) (DateInterval, error) {
	s, e := DateOf(start), DateOf(end)
	if s.After(e) {
		return DateInterval{}, fmt.Errorf("%w: start date %s after end date %s",
			ErrInvalidInterval, FormatDate(s), FormatDate(e))
	}
	return DateInterval{Start: s, End: e}, nil
}

// SingleDay returns the range covering only d.
func SingleDay(d time.Time) DateInterval {
	day := DateOf(d)
	return DateInterval{Start: day, End: day}
}

func (r DateInterval) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}

// DateInRange reports whether the calendar day of d lies inside r.
func DateInRange(d time.Time, r DateInterval) bool {
	day := DateOf(d)
	return !day.Before(DateOf(r.Start)) && !day.After(DateOf(r.End))
}

// Weekday returns the day of week of d, 0=Sunday.
func Weekday(d time.Time) int {
	return int(d.Weekday())
}
