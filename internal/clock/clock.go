// Package clock holds the minute-of-day time math shared by the schedule and
// booking packages. All clinic times are naive local clock values; nothing
// here is timezone-aware.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds every interval; bookings never cross midnight.
const MinutesPerDay = 24 * 60

var ErrInvalidFormat = errors.New("invalid time format")

// ParseTime converts an "HH:MM" clock string to a minute-of-day offset.
func ParseTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return hours*60 + minutes, nil
}

// FormatTime converts a minute-of-day offset back to "HH:MM". The caller
// guarantees 0 <= minutes < MinutesPerDay; anything larger means an upstream
// bug produced an interval crossing midnight.
func FormatTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Interval is a half-open [Start, End) range of minute offsets within a day.
// Intervals are always derived from a start time plus a duration, never
// stored.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds the interval covered by a start time and duration.
func NewInterval(startMinute, durationMinutes int) Interval {
	return Interval{Start: startMinute, End: startMinute + durationMinutes}
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// only touch at a boundary do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// String renders the interval as a human-readable "HH:MM–HH:MM" range.
func (i Interval) String() string {
	return FormatTime(i.Start) + "–" + FormatTime(i.End)
}

// FindConflict returns the first interval in existing, in slice order, that
// overlaps the candidate. Slice order matters: callers surface the returned
// interval in user-facing conflict messages.
func FindConflict(candidate Interval, existing []Interval) (Interval, bool) {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return e, true
		}
	}
	return Interval{}, false
}

// Clock supplies the current time. Handlers use it to reject availability
// queries for past dates; tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now.
func System() Clock { return systemClock{} }

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
