package email

import (
	"fmt"
	"strings"

	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/catalog"
)

// BuildDaySheet renders the morning schedule summary for one date. Bookings
// are expected in start order.
func BuildDaySheet(date string, bookings []booking.Booking, services *catalog.Catalog) (subject, body string) {
	subject = fmt.Sprintf("Day sheet for %s (%d bookings)", date, len(bookings))

	if len(bookings) == 0 {
		return subject, fmt.Sprintf("No bookings scheduled for %s.\n", date)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Schedule for %s:\n\n", date)
	for _, b := range bookings {
		name := b.ServiceID
		if services != nil {
			if svc, ok := services.Lookup(b.ServiceID); ok {
				name = svc.Name
			}
		}
		marker := ""
		if b.IsFirstTime {
			marker = " [first visit]"
		}
		fmt.Fprintf(&sb, "%s - %s  %s  %s (%s)%s\n",
			b.StartTime, b.EndTime(), name, b.CustomerName, b.CustomerPhone, marker)
		if strings.TrimSpace(b.Notes) != "" {
			fmt.Fprintf(&sb, "              note: %s\n", b.Notes)
		}
	}
	return subject, sb.String()
}
