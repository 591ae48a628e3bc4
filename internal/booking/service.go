package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/catalog"
	"github.com/codr1/seitai-booking/internal/clock"
)

// defaultDurationMinutes is the last arm of the duration fallback chain:
// request duration, then the service's configured duration, then this.
// Older deployments sent neither, so all three arms stay live.
const defaultDurationMinutes = 60

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError reports that the requested interval overlaps an existing
// booking on the same date. Existing carries the colliding time range for
// the user-facing message.
type ConflictError struct {
	Existing clock.Interval
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("the requested time overlaps an existing booking (%s); please choose another slot", e.Existing)
}

// Range returns the conflicting range as "HH:MM–HH:MM".
func (e ConflictError) Range() string {
	return e.Existing.String()
}

// CreateRequest is a booking submission. DurationMinutes zero means the
// client left duration to the service default.
type CreateRequest struct {
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	ServiceID       string `json:"serviceId"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	Notes           string `json:"notes,omitempty"`
	IsFirstTime     bool   `json:"isFirstTime,omitempty"`
}

// Notifier receives successful bookings for out-of-band delivery (e.g. a
// confirmation email). Failures must not affect the booking.
type Notifier interface {
	BookingCreated(ctx context.Context, b Booking, serviceName string)
}

// Service runs the booking creation workflow against a Store.
type Service struct {
	store    Store
	catalog  *catalog.Catalog
	notifier Notifier
	now      func() time.Time

	// locks serializes read-check-append per date so two overlapping
	// requests cannot both pass the conflict check.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier attaches a post-creation notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithNow overrides the creation timestamp source, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the booking workflow over the given store and catalog.
func NewService(store Store, cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: cat,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request, checks it against same-date bookings, and
// appends exactly one booking on success. Any failure leaves the store
// untouched.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Booking, error) {
	if err := validateRequired(req); err != nil {
		return Booking{}, err
	}

	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return Booking{}, ValidationError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}

	startMinute, err := clock.ParseTime(req.StartTime)
	if err != nil {
		return Booking{}, ValidationError{Field: "startTime", Reason: "must be formatted HH:MM"}
	}

	duration := s.resolveDuration(req)
	candidate := clock.NewInterval(startMinute, duration)
	if candidate.End > clock.MinutesPerDay {
		return Booking{}, ValidationError{Field: "startTime", Reason: "booking may not run past midnight"}
	}

	// Same-date read, conflict check and append run under one lock per
	// date; without it two concurrent requests could both pass the check.
	dateLock := s.lockFor(req.Date)
	dateLock.Lock()
	defer dateLock.Unlock()

	created := Booking{
		ID:            uuid.NewString(),
		Date:          req.Date,
		StartTime:     clock.FormatTime(startMinute),
		Duration:      duration,
		ServiceID:     req.ServiceID,
		CustomerName:  req.CustomerName,
		CustomerPhone: normalizePhone(req.CustomerPhone),
		Notes:         req.Notes,
		IsFirstTime:   req.IsFirstTime,
		CreatedAt:     s.now().UTC(),
	}

	if txStore, ok := s.store.(TxAppender); ok {
		// The store pushes the check into a storage transaction, closing
		// the race against other processes on the same database.
		if err := txStore.AppendChecked(ctx, created); err != nil {
			return Booking{}, err
		}
	} else {
		existing, err := s.store.ListByDate(ctx, req.Date)
		if err != nil {
			return Booking{}, err
		}
		if conflict, found := clock.FindConflict(candidate, Intervals(existing)); found {
			return Booking{}, ConflictError{Existing: conflict}
		}
		if err := s.store.Append(ctx, created); err != nil {
			return Booking{}, err
		}
	}

	log.Ctx(ctx).Info().
		Str("booking_id", created.ID).
		Str("date", created.Date).
		Str("start", created.StartTime).
		Int("duration", created.Duration).
		Str("service_id", created.ServiceID).
		Msg("Booking created")

	if s.notifier != nil {
		serviceName := created.ServiceID
		if svc, ok := s.catalog.Lookup(created.ServiceID); ok {
			serviceName = svc.Name
		}
		s.notifier.BookingCreated(ctx, created, serviceName)
	}

	return created, nil
}

func validateRequired(req CreateRequest) error {
	required := []struct {
		field string
		value string
	}{
		{"date", req.Date},
		{"startTime", req.StartTime},
		{"serviceId", req.ServiceID},
		{"customerName", req.CustomerName},
		{"customerPhone", req.CustomerPhone},
	}
	for _, f := range required {
		if f.value == "" {
			return ValidationError{Field: f.field, Reason: "is required"}
		}
	}
	if req.DurationMinutes < 0 {
		return ValidationError{Field: "durationMinutes", Reason: "must be greater than 0"}
	}
	return nil
}

// resolveDuration applies the fallback chain: explicit request duration,
// then the catalog service's duration, then the system default. Unknown
// service ids fall through to the default rather than failing; the catalog
// is read-only configuration and older clients sent menu ids that no longer
// exist.
func (s *Service) resolveDuration(req CreateRequest) int {
	if req.DurationMinutes > 0 {
		return req.DurationMinutes
	}
	if svc, ok := s.catalog.Lookup(req.ServiceID); ok && svc.Duration > 0 {
		return svc.Duration
	}
	return defaultDurationMinutes
}

func (s *Service) lockFor(date string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[date]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[date] = mu
	}
	return mu
}
