package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all historical data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/historical", func(r chi.Router) {
		r.Get("/prices/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetDailyPrices(w, r, chi.URLParam(r, "symbol"))
		})
		r.Get("/symbols", h.HandleGetSymbols)
		r.Post("/sync/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSyncSymbol(w, r, chi.URLParam(r, "symbol"))
		})
	})
}
