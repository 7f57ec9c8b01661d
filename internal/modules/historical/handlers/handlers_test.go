package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finplanner/rebalancer/internal/database"
	"github.com/finplanner/rebalancer/internal/modules/historical"
	testingpkg "github.com/finplanner/rebalancer/internal/testing"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncer struct {
	count  int
	err    error
	symbol string
	start  time.Time
	end    time.Time
}

func (s *stubSyncer) Sync(_ context.Context, symbol string, start, end time.Time) (int, error) {
	s.symbol, s.start, s.end = symbol, start, end
	return s.count, s.err
}

func newTestRouter(t *testing.T, syncer Syncer) (chi.Router, *sql.DB) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)

	handler := NewHandler(historical.NewHistoryDB(db, logger), syncer, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, db
}

func TestHandleGetDailyPrices(t *testing.T) {
	router, db := newTestRouter(t, &stubSyncer{})
	testingpkg.InsertDailyPrices(t, db, "AAPL", testingpkg.NewCloseSeries(
		[]string{"2024-01-02", "2024-01-03", "2024-01-04"}, []float64{100, 101, 102},
	))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCount  int
	}{
		{"all history", "/historical/prices/AAPL", http.StatusOK, 3},
		{"lower case symbol", "/historical/prices/aapl", http.StatusOK, 3},
		{"with date range", "/historical/prices/AAPL?start=2024-01-03&end=2024-01-03", http.StatusOK, 1},
		{"unknown symbol", "/historical/prices/MSFT", http.StatusOK, 0},
		{"invalid start", "/historical/prices/AAPL?start=yesterday", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var response struct {
				Data struct {
					Symbol string                  `json:"symbol"`
					Prices []historical.DailyPrice `json:"prices"`
					Count  int                     `json:"count"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedCount, response.Data.Count)
			assert.Len(t, response.Data.Prices, tt.expectedCount)
		})
	}
}

func TestHandleGetSymbols(t *testing.T) {
	router, db := newTestRouter(t, &stubSyncer{})
	testingpkg.InsertDailyPrices(t, db, "MSFT", testingpkg.NewCloseSeries([]string{"2024-01-02"}, []float64{370}))

	req := httptest.NewRequest("GET", "/historical/symbols", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["data"]["count"])
}

func TestHandleSyncSymbol(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		syncer         *stubSyncer
		expectedStatus int
	}{
		{"success", "/historical/sync/aapl", &stubSyncer{count: 250}, http.StatusOK},
		{"custom lookback", "/historical/sync/AAPL?days=30", &stubSyncer{count: 20}, http.StatusOK},
		{"invalid days", "/historical/sync/AAPL?days=-3", &stubSyncer{}, http.StatusBadRequest},
		{"unknown symbol", "/historical/sync/NOPE", &stubSyncer{err: fmt.Errorf("%w: NOPE", historical.ErrUnknownInstrument)}, http.StatusNotFound},
		{"upstream failure", "/historical/sync/AAPL", &stubSyncer{err: errors.New("timeout")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, tt.syncer)

			req := httptest.NewRequest("POST", tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "AAPL", tt.syncer.symbol)
				assert.True(t, tt.syncer.start.Before(tt.syncer.end))
			}
		})
	}
}

func TestHandleSyncSymbol_LookbackWindow(t *testing.T) {
	syncer := &stubSyncer{}
	router, _ := newTestRouter(t, syncer)

	req := httptest.NewRequest("POST", "/historical/sync/AAPL?days=30", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30*24*time.Hour, syncer.end.Sub(syncer.start))
}

// setupTestDB creates an in-memory SQLite database with the history schema applied
func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each new connection would see a fresh, empty in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := database.Schema("history")
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return db
}
