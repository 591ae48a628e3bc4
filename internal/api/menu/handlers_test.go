package menu

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/codr1/seitai-booking/internal/catalog"
)

func setupMenuTest(t *testing.T) {
	t.Helper()

	services = nil
	initOnce = sync.Once{}
	InitHandlers(catalog.Default())

	t.Cleanup(func() {
		services = nil
		initOnce = sync.Once{}
	})
}

func TestHandleMenu(t *testing.T) {
	setupMenuTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil)
	rec := httptest.NewRecorder()
	HandleMenu(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp menuResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// First-timers see the whole menu including the trial.
	firstIDs := make(map[string]menuItem, len(resp.FirstTime))
	for _, item := range resp.FirstTime {
		firstIDs[item.ID] = item
	}
	trial, ok := firstIDs["first-free-trial"]
	if !ok {
		t.Fatal("first-time menu should include the free trial")
	}
	if trial.Price == nil || *trial.Price != 0 {
		t.Errorf("trial price = %v, want 0", trial.Price)
	}
	if trial.PriceLabel != "Free" {
		t.Errorf("trial price label = %q, want Free", trial.PriceLabel)
	}
	if trial.DurationMinutes != 45 {
		t.Errorf("trial duration = %d, want 45", trial.DurationMinutes)
	}

	// Returning customers never see first-time-only items.
	for _, item := range resp.Returning {
		if item.FirstTimeOnly {
			t.Errorf("returning menu contains first-time-only item %q", item.ID)
		}
	}
	if len(resp.Returning) != 3 {
		t.Errorf("returning menu has %d items, want 3", len(resp.Returning))
	}
}

func TestHandleMenu_MethodNotAllowed(t *testing.T) {
	setupMenuTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/menu", nil)
	rec := httptest.NewRecorder()
	HandleMenu(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestPriceLabel(t *testing.T) {
	if got := priceLabel(nil); got != "Ask at the clinic" {
		t.Errorf("nil price label = %q", got)
	}
	free := 0
	if got := priceLabel(&free); got != "Free" {
		t.Errorf("zero price label = %q", got)
	}
	paid := 4500
	if got := priceLabel(&paid); got != "¥4500" {
		t.Errorf("paid price label = %q", got)
	}
}
