// Package handlers provides HTTP handlers for historical data operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
)

const defaultSyncLookbackDays = 365

// Syncer downloads and stores history for one symbol
type Syncer interface {
	Sync(ctx context.Context, symbol string, start, end time.Time) (int, error)
}

// Handler handles historical data HTTP requests
type Handler struct {
	historyDB *historical.HistoryDB
	syncer    Syncer
	log       zerolog.Logger
}

// NewHandler creates a new historical data handler
func NewHandler(
	historyDB *historical.HistoryDB,
	syncer Syncer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		historyDB: historyDB,
		syncer:    syncer,
		log:       log.With().Str("handler", "historical").Logger(),
	}
}

// HandleGetDailyPrices handles GET /api/historical/prices/{symbol}?start=&end=
func (h *Handler) HandleGetDailyPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	start := r.URL.Query().Get("start")
	if start == "" {
		start = "1970-01-01"
	}
	end := r.URL.Query().Get("end")

	prices, err := h.historyDB.GetDailyPrices(symbol, start, end)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Invalid date range: "+err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"prices": prices,
			"count":  len(prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSymbols handles GET /api/historical/symbols
func (h *Handler) HandleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.historyDB.ListSymbols()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		http.Error(w, "Failed to list symbols", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": symbols,
			"count":   len(symbols),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSyncSymbol handles POST /api/historical/sync/{symbol}?days=
func (h *Handler) HandleSyncSymbol(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	days := defaultSyncLookbackDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	end := utils.TruncateToDay(time.Now()).Add(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	count, err := h.syncer.Sync(r.Context(), symbol, start, end)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, historical.ErrUnknownInstrument) {
			status = http.StatusNotFound
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to sync symbol")
		http.Error(w, err.Error(), status)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"synced": count,
			"start":  start.Format(utils.DateLayout),
			"end":    end.Format(utils.DateLayout),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
