package schedule

import (
	"time"

	"github.com/codr1/seitai-booking/internal/catalog"
	"github.com/codr1/seitai-booking/internal/clock"
)

// Slot is one candidate start time offered to a customer. Unavailable slots
// are included so the caller can render them disabled.
type Slot struct {
	Time      string `json:"time"` // "HH:MM"
	Duration  int    `json:"duration"`
	Available bool   `json:"available"`
	ServiceID string `json:"serviceId"`
}

// GenerateSlots produces the ordered candidate start times for a service on
// a date. Candidates run from open to close (exclusive) at the service's
// step; a candidate is unavailable when its interval would run past closing,
// cross the lunch break, or overlap an existing booking. A closed day yields
// no slots.
//
// Slots are emitted in ascending start-time order and the result is a pure
// function of its inputs; callers may regenerate freely.
func GenerateSlots(cal *Calendar, date time.Time, svc catalog.Service, existing []clock.Interval) []Slot {
	window := cal.WindowFor(date)
	if window.Closed {
		return nil
	}

	step := svc.Step()
	var slots []Slot
	for start := window.Open; start < window.Close; start += step {
		if !svc.AllowsMinute(start % 60) {
			continue
		}

		candidate := clock.NewInterval(start, svc.Duration)

		available := candidate.End <= window.Close
		if available && window.Lunch != nil && candidate.Overlaps(*window.Lunch) {
			available = false
		}
		if available {
			if _, conflict := clock.FindConflict(candidate, existing); conflict {
				available = false
			}
		}

		slots = append(slots, Slot{
			Time:      clock.FormatTime(start),
			Duration:  svc.Duration,
			Available: available,
			ServiceID: svc.ID,
		})
	}
	return slots
}
