// internal/api/admin/handlers.go
package admin

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/api/apiutil"
	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/catalog"
)

const adminQueryTimeout = 5 * time.Second

var (
	store    booking.Store
	services *catalog.Catalog
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s booking.Store, cat *catalog.Catalog) {
	if s == nil || cat == nil {
		return
	}
	initOnce.Do(func() {
		store = s
		services = cat
	})
}

// GET /admin/bookings?date=YYYY-MM-DD
func HandleBookings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil || services == nil {
		logger.Error().Msg("Admin handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if r.Method != http.MethodGet {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	var bookings []booking.Booking
	if date != "" {
		bookings, err = store.ListByDate(ctx, date)
	} else {
		bookings, err = store.ListAll(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Str("date", date).Msg("Failed to load bookings for admin view")
		apiutil.WriteError(w, http.StatusServiceUnavailable, "Booking storage is unavailable")
		return
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date < bookings[j].Date
		}
		return bookings[i].StartTime < bookings[j].StartTime
	})

	component := bookingsPageComponent(date, bookings, services)
	if !apiutil.RenderHTMLComponent(r.Context(), w, component, "Failed to render admin bookings", "Failed to render bookings") {
		return
	}
}

func bookingsPageComponent(date string, bookings []booking.Booking, services *catalog.Catalog) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "All bookings"
		if date != "" {
			title = "Bookings for " + html.EscapeString(date)
		}
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+title+`</title></head><body>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, fmt.Sprintf(`<h1>%s</h1>`, title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, buildTotalsHTML(bookings)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, buildBookingsTableHTML(bookings, services)); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func buildTotalsHTML(bookings []booking.Booking) string {
	today := time.Now().Format(booking.DateLayout)
	var todayCount, firstTimeCount int
	for _, b := range bookings {
		if b.Date == today {
			todayCount++
		}
		if b.IsFirstTime {
			firstTimeCount++
		}
	}
	return fmt.Sprintf(`<p>%d booking(s), %d today, %d first visit(s)</p>`,
		len(bookings), todayCount, firstTimeCount)
}

func buildBookingsTableHTML(bookings []booking.Booking, services *catalog.Catalog) string {
	if len(bookings) == 0 {
		return `<p>No bookings found.</p>`
	}

	var builder strings.Builder
	builder.WriteString(`<table border="1"><thead><tr>` +
		`<th>Date</th><th>Time</th><th>Service</th><th>Customer</th><th>Phone</th><th>First visit</th><th>Notes</th>` +
		`</tr></thead><tbody>`)
	for _, b := range bookings {
		builder.WriteString(buildBookingRowHTML(b, services))
	}
	builder.WriteString(`</tbody></table>`)
	return builder.String()
}

func buildBookingRowHTML(b booking.Booking, services *catalog.Catalog) string {
	serviceName := b.ServiceID
	if svc, ok := services.Lookup(b.ServiceID); ok {
		serviceName = svc.Name
	}
	firstVisit := ""
	if b.IsFirstTime {
		firstVisit = "yes"
	}
	return fmt.Sprintf(`<tr><td>%s</td><td>%s - %s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
		html.EscapeString(b.Date),
		html.EscapeString(b.StartTime),
		html.EscapeString(b.EndTime()),
		html.EscapeString(serviceName),
		html.EscapeString(b.CustomerName),
		html.EscapeString(b.CustomerPhone),
		firstVisit,
		html.EscapeString(b.Notes),
	)
}
