package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codr1/seitai-booking/internal/catalog"
)

func newTestService(t *testing.T, store Store, opts ...Option) *Service {
	t.Helper()
	fixed := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	opts = append([]Option{WithNow(func() time.Time { return fixed })}, opts...)
	return NewService(store, catalog.Default(), opts...)
}

func validRequest() CreateRequest {
	return CreateRequest{
		Date:          "2025-07-07", // a Monday
		StartTime:     "10:00",
		ServiceID:     "postnatal-treatment",
		CustomerName:  "A",
		CustomerPhone: "000",
	}
}

func TestCreateSuccess(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)

	created, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.ID == "" {
		t.Error("booking id should be generated")
	}
	if created.Duration != 60 {
		t.Errorf("duration = %d, want 60 (service default)", created.Duration)
	}
	if created.StartTime != "10:00" || created.EndTime() != "11:00" {
		t.Errorf("range = %s–%s, want 10:00–11:00", created.StartTime, created.EndTime())
	}
	if created.CreatedAt.IsZero() {
		t.Error("creation timestamp should be stamped")
	}

	iv, err := created.Interval()
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	if iv.Start != 600 || iv.End != 660 {
		t.Errorf("interval = [%d,%d), want [600,660)", iv.Start, iv.End)
	}

	all, _ := store.ListAll(context.Background())
	if len(all) != 1 {
		t.Fatalf("store holds %d bookings, want 1", len(all))
	}
}

func TestCreateConflict(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validRequest()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := validRequest()
	second.StartTime = "10:30"
	_, err := svc.Create(ctx, second)

	var conflict ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Range() != "10:00–11:00" {
		t.Errorf("conflict range = %q, want %q", conflict.Range(), "10:00–11:00")
	}
	if !strings.Contains(conflict.Error(), "10:00–11:00") {
		t.Errorf("conflict message %q should cite the existing range", conflict.Error())
	}

	// The failed attempt must not write.
	all, _ := store.ListAll(ctx)
	if len(all) != 1 {
		t.Errorf("store holds %d bookings after conflict, want 1", len(all))
	}
}

func TestCreateBackToBackAllowed(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validRequest()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := validRequest()
	second.StartTime = "11:00" // touches 10:00–11:00 exactly at the boundary
	if _, err := svc.Create(ctx, second); err != nil {
		t.Fatalf("back-to-back booking should succeed: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(*CreateRequest)
		wantField string
	}{
		{"missing date", func(r *CreateRequest) { r.Date = "" }, "date"},
		{"missing start", func(r *CreateRequest) { r.StartTime = "" }, "startTime"},
		{"missing service", func(r *CreateRequest) { r.ServiceID = "" }, "serviceId"},
		{"missing name", func(r *CreateRequest) { r.CustomerName = "" }, "customerName"},
		{"missing phone", func(r *CreateRequest) { r.CustomerPhone = "" }, "customerPhone"},
		{"bad date", func(r *CreateRequest) { r.Date = "07/07/2025" }, "date"},
		{"bad time", func(r *CreateRequest) { r.StartTime = "25:00" }, "startTime"},
		{"negative duration", func(r *CreateRequest) { r.DurationMinutes = -30 }, "durationMinutes"},
		{"past midnight", func(r *CreateRequest) { r.StartTime = "23:30" }, "startTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Create(ctx, req)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}

	if all, _ := store.ListAll(ctx); len(all) != 0 {
		t.Errorf("store holds %d bookings after failed requests, want 0", len(all))
	}
}

func TestDurationFallbackChain(t *testing.T) {
	// The chain is explicit request duration, then the service's
	// configured duration, then 60. Deployments used different subsets,
	// so all three arms must hold.
	tests := []struct {
		name    string
		request CreateRequest
		want    int
	}{
		{
			name: "explicit duration wins",
			request: CreateRequest{
				Date: "2025-07-07", StartTime: "10:00", ServiceID: "general-treatment",
				DurationMinutes: 45, CustomerName: "A", CustomerPhone: "000",
			},
			want: 45,
		},
		{
			name: "service duration",
			request: CreateRequest{
				Date: "2025-07-07", StartTime: "10:00", ServiceID: "general-treatment",
				CustomerName: "A", CustomerPhone: "000",
			},
			want: 15,
		},
		{
			name: "system default for unknown service",
			request: CreateRequest{
				Date: "2025-07-07", StartTime: "10:00", ServiceID: "retired-menu-item",
				CustomerName: "A", CustomerPhone: "000",
			},
			want: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, NewMemoryStore())
			created, err := svc.Create(context.Background(), tt.request)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if created.Duration != tt.want {
				t.Errorf("duration = %d, want %d", created.Duration, tt.want)
			}
		})
	}
}

func TestNoDoubleBookingUnderConcurrency(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.StartTime = "10:30" // all overlap each other
			_, errs[i] = svc.Create(ctx, req)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var conflict ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("%d overlapping requests succeeded, want exactly 1", successes)
	}

	all, _ := store.ListAll(ctx)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, _ := all[i].Interval()
			b, _ := all[j].Interval()
			if a.Overlaps(b) {
				t.Errorf("stored bookings overlap: %s and %s", a, b)
			}
		}
	}
}

func TestCreatePhoneNormalization(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	req := validRequest()
	req.CustomerPhone = "+81 90-1234-5678"
	created, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CustomerPhone != "090-1234-5678" {
		t.Errorf("phone = %q, want national format %q", created.CustomerPhone, "090-1234-5678")
	}

	// Non-numbers are kept verbatim; the workflow never rejects on phone
	// format.
	req = validRequest()
	req.StartTime = "12:00"
	created, err = svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CustomerPhone != "000" {
		t.Errorf("phone = %q, want verbatim %q", created.CustomerPhone, "000")
	}
}

func TestSearchFindsNormalizedNumberByTypedDigits(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	req := validRequest()
	req.CustomerPhone = "09012345678"
	created, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CustomerPhone != "090-1234-5678" {
		t.Fatalf("stored phone = %q, want national format", created.CustomerPhone)
	}

	// The bare digits typed at booking, the stored format, and a partial
	// number all find the same booking.
	for _, query := range []string{"09012345678", "090-1234-5678", "1234"} {
		matches, err := store.SearchByPhone(ctx, query)
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		if len(matches) != 1 {
			t.Errorf("search %q returned %d bookings, want 1", query, len(matches))
		}
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	bookings []Booking
	services []string
}

func (n *recordingNotifier) BookingCreated(ctx context.Context, b Booking, serviceName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, b)
	n.services = append(n.services, serviceName)
}

func TestCreateNotifiesOnSuccessOnly(t *testing.T) {
	notifier := &recordingNotifier{}
	store := NewMemoryStore()
	svc := newTestService(t, store, WithNotifier(notifier))
	ctx := context.Background()

	if _, err := svc.Create(ctx, validRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}

	conflicting := validRequest()
	conflicting.StartTime = "10:15"
	if _, err := svc.Create(ctx, conflicting); err == nil {
		t.Fatal("expected conflict")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.bookings) != 1 {
		t.Fatalf("notifier received %d bookings, want 1", len(notifier.bookings))
	}
	if notifier.services[0] != "Postnatal Pelvic Correction" {
		t.Errorf("service name = %q, want resolved menu name", notifier.services[0])
	}
}
