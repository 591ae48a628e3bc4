// internal/api/slots/handlers.go
package slots

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/api/apiutil"
	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/catalog"
	"github.com/codr1/seitai-booking/internal/clock"
	"github.com/codr1/seitai-booking/internal/schedule"
)

const slotQueryTimeout = 5 * time.Second

var (
	calendar *schedule.Calendar
	services *catalog.Catalog
	store    booking.Store
	appClock clock.Clock
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(cal *schedule.Calendar, cat *catalog.Catalog, s booking.Store, clk clock.Clock) {
	if cal == nil || cat == nil || s == nil {
		return
	}
	initOnce.Do(func() {
		calendar = cal
		services = cat
		store = s
		appClock = clk
		if appClock == nil {
			appClock = clock.System()
		}
	})
}

type slotsResponse struct {
	Date      string          `json:"date"`
	ServiceID string          `json:"serviceId"`
	Slots     []schedule.Slot `json:"slots"`
}

// GET /api/v1/slots?date=YYYY-MM-DD&service_id=X
func HandleSlots(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if calendar == nil || services == nil || store == nil {
		logger.Error().Msg("Slot handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if r.Method != http.MethodGet {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	date, err := apiutil.RequireDateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	serviceID, err := apiutil.RequireQuery(r, "service_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc, ok := services.Lookup(serviceID)
	if !ok {
		msg := fmt.Sprintf("Unknown service %q; available: %s", serviceID, strings.Join(services.IDs(), ", "))
		apiutil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	// The calendar only encodes weekly recurrence; past days are rejected
	// here so customers cannot book into them.
	if date.Before(clock.DateOf(appClock.Now())) {
		apiutil.WriteError(w, http.StatusBadRequest, "Date is in the past")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), slotQueryTimeout)
	defer cancel()

	existing, err := store.ListByDate(ctx, date.Format(booking.DateLayout))
	if err != nil {
		logger.Error().Err(err).Str("date", date.Format(booking.DateLayout)).Msg("Failed to load bookings for slot query")
		apiutil.WriteError(w, http.StatusServiceUnavailable, "Booking storage is unavailable, please retry")
		return
	}

	slots := schedule.GenerateSlots(calendar, date, svc, booking.Intervals(existing))
	if slots == nil {
		// Closed day: an empty list is a legitimate outcome, not an error.
		slots = []schedule.Slot{}
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, slotsResponse{
		Date:      date.Format(booking.DateLayout),
		ServiceID: serviceID,
		Slots:     slots,
	})
}
