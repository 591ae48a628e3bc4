// Package booking owns the reservation records and the creation workflow:
// field validation, the duration fallback chain, conflict detection against
// same-date bookings, and the single append into the store.
package booking

import (
	"fmt"
	"time"

	"github.com/codr1/seitai-booking/internal/clock"
)

// DateLayout is the calendar-day format every booking date uses.
const DateLayout = "2006-01-02"

// Booking is one confirmed reservation. Bookings are created once and never
// mutated; removal is an administrative action outside this package.
type Booking struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`      // "2006-01-02"
	StartTime     string    `json:"startTime"` // "HH:MM"
	Duration      int       `json:"durationMinutes"`
	ServiceID     string    `json:"serviceId"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	Notes         string    `json:"notes,omitempty"`
	IsFirstTime   bool      `json:"isFirstTime,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Interval computes the half-open minute range this booking occupies.
func (b Booking) Interval() (clock.Interval, error) {
	start, err := clock.ParseTime(b.StartTime)
	if err != nil {
		return clock.Interval{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	return clock.NewInterval(start, b.Duration), nil
}

// EndTime formats the booking's end as "HH:MM".
func (b Booking) EndTime() string {
	iv, err := b.Interval()
	if err != nil {
		return ""
	}
	return clock.FormatTime(iv.End)
}

// Intervals maps bookings to their occupied intervals, preserving order.
// Bookings with unparsable start times are skipped; the store never accepts
// them, so hitting one means the store was edited out of band.
func Intervals(bookings []Booking) []clock.Interval {
	intervals := make([]clock.Interval, 0, len(bookings))
	for _, b := range bookings {
		iv, err := b.Interval()
		if err != nil {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals
}
