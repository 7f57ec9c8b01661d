package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancer routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalancer", func(r chi.Router) {
		r.Get("/summary", h.HandleGetSummary)
		r.Post("/summary", h.HandlePostSummary)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRun(w, r, chi.URLParam(r, "id"))
		})
	})
}
