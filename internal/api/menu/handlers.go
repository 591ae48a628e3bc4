// internal/api/menu/handlers.go
package menu

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/api/apiutil"
	"github.com/codr1/seitai-booking/internal/catalog"
)

var (
	services *catalog.Catalog
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(cat *catalog.Catalog) {
	if cat == nil {
		return
	}
	initOnce.Do(func() {
		services = cat
	})
}

type menuItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Price           *int   `json:"price"`
	PriceLabel      string `json:"priceLabel"`
	Description     string `json:"description,omitempty"`
	FirstTimeOnly   bool   `json:"firstTimeOnly"`
}

type menuResponse struct {
	FirstTime []menuItem `json:"firstTime"`
	Returning []menuItem `json:"returning"`
}

// GET /api/v1/menu
func HandleMenu(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if services == nil {
		logger.Error().Msg("Menu handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if r.Method != http.MethodGet {
		apiutil.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	resp := menuResponse{
		FirstTime: toItems(services.FirstTime()),
		Returning: toItems(services.Returning()),
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, resp)
}

func toItems(svcs []catalog.Service) []menuItem {
	items := make([]menuItem, 0, len(svcs))
	for _, svc := range svcs {
		items = append(items, menuItem{
			ID:              svc.ID,
			Name:            svc.Name,
			DurationMinutes: svc.Duration,
			Price:           svc.Price,
			PriceLabel:      priceLabel(svc.Price),
			Description:     svc.Description,
			FirstTimeOnly:   svc.FirstTimeOnly,
		})
	}
	return items
}

func priceLabel(yen *int) string {
	if yen == nil {
		return "Ask at the clinic"
	}
	if *yen == 0 {
		return "Free"
	}
	return apiutil.FormatPriceYen(*yen)
}
