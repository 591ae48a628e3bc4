package slots

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/catalog"
	"github.com/codr1/seitai-booking/internal/schedule"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func setupSlotsTest(t *testing.T) *booking.MemoryStore {
	t.Helper()

	cal := schedule.Default()
	memStore := booking.NewMemoryStore()
	clk := fixedClock{now: time.Date(2025, 7, 1, 12, 0, 0, 0, time.Local)}

	calendar = nil
	services = nil
	store = nil
	appClock = nil
	initOnce = sync.Once{}
	InitHandlers(cal, catalog.Default(), memStore, clk)

	t.Cleanup(func() {
		calendar = nil
		services = nil
		store = nil
		appClock = nil
		initOnce = sync.Once{}
	})

	return memStore
}

func requestSlots(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots"+query, nil)
	rec := httptest.NewRecorder()
	HandleSlots(rec, req)
	return rec
}

func TestHandleSlots_RequiresDateAndService(t *testing.T) {
	setupSlotsTest(t)

	cases := []struct {
		name  string
		query string
	}{
		{"missing date", "?service_id=general-treatment"},
		{"bad date", "?date=07/07/2025&service_id=general-treatment"},
		{"missing service", "?date=2025-07-07"},
		{"unknown service", "?date=2025-07-07&service_id=haircut"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := requestSlots(t, tc.query)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleSlots_UnknownServiceListsMenu(t *testing.T) {
	setupSlotsTest(t)

	rec := requestSlots(t, "?date=2025-07-07&service_id=haircut")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "haircut") {
		t.Errorf("error should name the rejected service id, got %s", body)
	}
	if !strings.Contains(body, "general-treatment") {
		t.Errorf("error should list the configured service ids, got %s", body)
	}
}

func TestHandleSlots_RejectsPastDate(t *testing.T) {
	setupSlotsTest(t)

	rec := requestSlots(t, "?date=2025-06-30&service_id=general-treatment")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSlots_MethodNotAllowed(t *testing.T) {
	setupSlotsTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots?date=2025-07-07&service_id=general-treatment", nil)
	rec := httptest.NewRecorder()
	HandleSlots(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleSlots_ClosedDayReturnsEmptyList(t *testing.T) {
	setupSlotsTest(t)

	// 2025-07-06 is a Sunday.
	rec := requestSlots(t, "?date=2025-07-06&service_id=general-treatment")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Date      string          `json:"date"`
		ServiceID string          `json:"serviceId"`
		Slots     []schedule.Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Slots == nil {
		t.Error("slots should be an empty array, not null")
	}
	if len(resp.Slots) != 0 {
		t.Errorf("got %d slots for a closed day", len(resp.Slots))
	}
}

func TestHandleSlots_MarksBookedTimesUnavailable(t *testing.T) {
	memStore := setupSlotsTest(t)

	err := memStore.Append(context.Background(), booking.Booking{
		ID:        "b-1",
		Date:      "2025-07-07",
		StartTime: "10:00",
		Duration:  60,
		ServiceID: "postnatal-treatment",
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	rec := requestSlots(t, "?date=2025-07-07&service_id=general-treatment")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Slots []schedule.Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	available := make(map[string]bool, len(resp.Slots))
	for _, s := range resp.Slots {
		available[s.Time] = s.Available
	}

	for _, tm := range []string{"10:00", "10:15", "10:30", "10:45"} {
		if got, ok := available[tm]; !ok || got {
			t.Errorf("slot %s should be offered but unavailable (present=%v available=%v)", tm, ok, got)
		}
	}
	// The booking ends at 11:00; a half-open interval frees that slot.
	if !available["11:00"] {
		t.Error("slot 11:00 should be available")
	}
	// Lunch break.
	if available["14:00"] {
		t.Error("slot 14:00 should be unavailable during lunch")
	}
}

func TestHandleSlots_UninitializedReturns500(t *testing.T) {
	calendar = nil
	services = nil
	store = nil
	appClock = nil
	initOnce = sync.Once{}
	t.Cleanup(func() { initOnce = sync.Once{} })

	rec := requestSlots(t, "?date=2025-07-07&service_id=general-treatment")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
