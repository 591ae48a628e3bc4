// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/api/apiutil"
	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/ratelimit"
)

const bookingQueryTimeout = 5 * time.Second

var (
	workflow *booking.Service
	store    booking.Store
	limiter  *ratelimit.Limiter
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *booking.Service, s booking.Store, l *ratelimit.Limiter) {
	if svc == nil || s == nil {
		return
	}
	initOnce.Do(func() {
		workflow = svc
		store = s
		limiter = l
	})
}

type createResponse struct {
	Booking booking.Booking `json:"booking"`
	Message string          `json:"message"`
}

type conflictResponse struct {
	Error            string `json:"error"`
	ConflictingRange string `json:"conflictingRange"`
}

// HandleBookings serves /api/v1/bookings: POST creates, GET lists.
func HandleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		handleCreate(w, r)
	case http.MethodGet:
		handleList(w, r)
	default:
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func handleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if workflow == nil {
		logger.Error().Msg("Booking handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req booking.CreateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if limiter != nil {
		ip := ratelimit.GetClientIP(r, false)
		if result := limiter.CheckSubmit(req.CustomerPhone, ip); !result.Allowed {
			logger.Warn().
				Str("reason", result.Reason).
				Dur("retry_after", result.RetryAfter).
				Msg("Booking submission rate limited")
			apiutil.WriteError(w, http.StatusTooManyRequests, "Too many booking attempts, try again shortly")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	created, err := workflow.Create(ctx, req)
	if err != nil {
		var verr booking.ValidationError
		if errors.As(err, &verr) {
			apiutil.WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		var conflict booking.ConflictError
		if errors.As(err, &conflict) {
			_ = apiutil.WriteJSON(w, http.StatusConflict, conflictResponse{
				Error:            conflict.Error(),
				ConflictingRange: conflict.Range(),
			})
			return
		}
		if errors.Is(err, booking.ErrStorage) {
			logger.Error().Err(err).Msg("Booking storage failure")
			apiutil.WriteError(w, http.StatusServiceUnavailable, "Booking storage is unavailable, please retry")
			return
		}
		logger.Error().Err(err).Msg("Failed to create booking")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create booking")
		return
	}

	if limiter != nil {
		limiter.RecordSubmit(req.CustomerPhone, ratelimit.GetClientIP(r, false))
	}

	_ = apiutil.WriteJSON(w, http.StatusCreated, createResponse{
		Booking: created,
		Message: "Your booking has been confirmed",
	})
}

func handleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Booking handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	var list []booking.Booking
	if date != "" {
		list, err = store.ListByDate(ctx, date)
	} else {
		list, err = store.ListAll(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list bookings")
		apiutil.WriteError(w, http.StatusServiceUnavailable, "Booking storage is unavailable, please retry")
		return
	}
	if list == nil {
		list = []booking.Booking{}
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

// GET /api/v1/bookings/search?phone=...
func HandleSearch(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Booking handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if r.Method != http.MethodGet {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	phone, err := apiutil.RequireQuery(r, "phone")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	matches, err := store.SearchByPhone(ctx, phone)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to search bookings")
		apiutil.WriteError(w, http.StatusServiceUnavailable, "Booking storage is unavailable, please retry")
		return
	}
	if matches == nil {
		matches = []booking.Booking{}
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"bookings": matches,
		"total":    len(matches),
	})
}
