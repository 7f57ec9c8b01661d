package handlers

import (
	"net/http"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes(t *testing.T) {
	handler := NewHandler(&stubTrainer{}, nil, zerolog.Nop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	var routes []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(routes)

	assert.Equal(t, []string{
		"GET /rebalancer/runs",
		"GET /rebalancer/runs/{id}",
		"GET /rebalancer/summary",
		"POST /rebalancer/summary",
	}, routes)
}
