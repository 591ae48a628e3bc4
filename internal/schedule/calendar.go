// Package schedule turns the clinic's weekly operating hours into concrete
// availability: which window applies on a given date, and which start times
// can be offered for a service.
package schedule

import (
	"fmt"
	"time"

	"github.com/codr1/seitai-booking/internal/clock"
)

// DayHours describes one operating window in minute-of-day offsets.
type DayHours struct {
	Open  int
	Close int
	Lunch *clock.Interval
}

func (h DayHours) validate() error {
	if h.Open < 0 || h.Close > clock.MinutesPerDay {
		return fmt.Errorf("hours out of day range: %s–%s", clock.FormatTime(h.Open), clock.FormatTime(h.Close))
	}
	if h.Open >= h.Close {
		return fmt.Errorf("open %s must be before close %s", clock.FormatTime(h.Open), clock.FormatTime(h.Close))
	}
	if h.Lunch != nil {
		if h.Lunch.Start >= h.Lunch.End {
			return fmt.Errorf("lunch start %s must be before lunch end %s",
				clock.FormatTime(h.Lunch.Start), clock.FormatTime(h.Lunch.End))
		}
		if h.Lunch.Start < h.Open || h.Lunch.End > h.Close {
			return fmt.Errorf("lunch break %s must fall within hours %s–%s",
				h.Lunch, clock.FormatTime(h.Open), clock.FormatTime(h.Close))
		}
	}
	return nil
}

// Window is the resolved operating window for a specific date.
type Window struct {
	Closed bool
	Open   int
	Close  int
	Lunch  *clock.Interval
}

// Calendar resolves dates to operating windows. It only encodes weekly
// recurrence; rejecting past dates is the caller's concern.
type Calendar struct {
	weekday    DayHours
	saturday   *DayHours
	closedDays map[time.Weekday]struct{}
}

// NewCalendar builds a calendar from a default weekday window, an optional
// Saturday override, and the set of fully closed weekdays.
func NewCalendar(weekday DayHours, saturday *DayHours, closed []time.Weekday) (*Calendar, error) {
	if err := weekday.validate(); err != nil {
		return nil, fmt.Errorf("weekday hours: %w", err)
	}
	if saturday != nil {
		if err := saturday.validate(); err != nil {
			return nil, fmt.Errorf("saturday hours: %w", err)
		}
	}

	closedDays := make(map[time.Weekday]struct{}, len(closed))
	for _, day := range closed {
		closedDays[day] = struct{}{}
	}
	if len(closedDays) == 7 {
		return nil, fmt.Errorf("every weekday is closed")
	}

	return &Calendar{
		weekday:    weekday,
		saturday:   saturday,
		closedDays: closedDays,
	}, nil
}

// Default returns the stock clinic week: 10:00–20:00 with a 14:00–15:00
// lunch break, short Saturdays 10:00–13:00, closed Sundays.
func Default() *Calendar {
	cal, err := NewCalendar(
		DayHours{
			Open:  10 * 60,
			Close: 20 * 60,
			Lunch: &clock.Interval{Start: 14 * 60, End: 15 * 60},
		},
		&DayHours{Open: 10 * 60, Close: 13 * 60},
		[]time.Weekday{time.Sunday},
	)
	if err != nil {
		panic(err)
	}
	return cal
}

// WindowFor resolves the operating window for date. Closed days return a
// Window with Closed set and no hours.
func (c *Calendar) WindowFor(date time.Time) Window {
	day := date.Weekday()
	if _, closed := c.closedDays[day]; closed {
		return Window{Closed: true}
	}

	hours := c.weekday
	if day == time.Saturday && c.saturday != nil {
		hours = *c.saturday
	}

	window := Window{Open: hours.Open, Close: hours.Close}
	if hours.Lunch != nil {
		lunch := *hours.Lunch
		window.Lunch = &lunch
	}
	return window
}
