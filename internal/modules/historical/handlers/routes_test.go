package handlers

import (
	"net/http"
	"testing"

	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)

	handler := NewHandler(historical.NewHistoryDB(db, logger), &stubSyncer{}, logger)
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")

	routes := make(map[string]bool)
	_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	})
	assert.True(t, routes["GET /historical/prices/{symbol}"])
	assert.True(t, routes["GET /historical/symbols"])
	assert.True(t, routes["POST /historical/sync/{symbol}"])
}
