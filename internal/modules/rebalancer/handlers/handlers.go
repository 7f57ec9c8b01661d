// Package handlers provides HTTP handlers for rebalancer training and stored runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
)

// maxRequestBody bounds POST summary bodies
const maxRequestBody = 1 << 20

// categoryNotFound marks lookups of stored runs that do not exist
const categoryNotFound rebalancer.Category = "not_found"

// Trainer runs the training pipeline
type Trainer interface {
	BuildAndTrain(ctx context.Context, req rebalancer.Request) (*rebalancer.Result, error)
	DefaultEpisodes() int
}

// RunReader reads stored training runs
type RunReader interface {
	Get(ctx context.Context, id string) (*rebalancer.TrainingRun, error)
	List(ctx context.Context, limit int) ([]rebalancer.TrainingRun, error)
}

// Handler handles rebalancer HTTP requests
type Handler struct {
	trainer Trainer
	runs    RunReader
	log     zerolog.Logger
}

// NewHandler creates a new rebalancer handler
func NewHandler(trainer Trainer, runs RunReader, log zerolog.Logger) *Handler {
	return &Handler{
		trainer: trainer,
		runs:    runs,
		log:     log.With().Str("handler", "rebalancer").Logger(),
	}
}

type summaryBody struct {
	Tickers  []string `json:"tickers"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Episodes *int     `json:"episodes"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Category rebalancer.Category `json:"category"`
	Message  string              `json:"message"`
}

// HandleGetSummary handles GET /api/rebalancer/summary?tickers=&start=&end=&episodes=
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := h.summaryFromQuery(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandlePostSummary handles POST /api/rebalancer/summary with a JSON body
func (h *Handler) HandlePostSummary(w http.ResponseWriter, r *http.Request) {
	var body summaryBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		h.writeError(w, rebalancer.CategoryInvalidInput, "invalid request body: "+err.Error())
		return
	}

	episodes := h.trainer.DefaultEpisodes()
	if body.Episodes != nil {
		if *body.Episodes <= 0 {
			h.writeError(w, rebalancer.CategoryInvalidInput, "episodes must be a positive integer")
			return
		}
		episodes = *body.Episodes
	}

	result, ok := h.train(w, r, rebalancer.Request{
		Tickers:  utils.NormalizeTickers(body.Tickers...),
		Start:    body.Start,
		End:      body.End,
		Episodes: episodes,
	})
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleLegacySummary handles GET /rebalancer-summary. The result is written
// without the data envelope, which is the shape dashboard clients read.
func (h *Handler) HandleLegacySummary(w http.ResponseWriter, r *http.Request) {
	result, ok := h.summaryFromQuery(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleListRuns handles GET /api/rebalancer/runs?limit=
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := rebalancer.DefaultRunListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			h.writeError(w, rebalancer.CategoryInvalidInput, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list training runs")
		h.writeError(w, rebalancer.CategoryInternal, "failed to list training runs")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}))
}

// HandleGetRun handles GET /api/rebalancer/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, rebalancer.ErrRunNotFound) {
		h.writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Category: categoryNotFound,
			Message:  err.Error(),
		}})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get training run")
		h.writeError(w, rebalancer.CategoryInternal, "failed to get training run")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// summaryFromQuery parses tickers, dates and episodes from the query string and trains
func (h *Handler) summaryFromQuery(w http.ResponseWriter, r *http.Request) (*rebalancer.Result, bool) {
	q := r.URL.Query()

	episodes := h.trainer.DefaultEpisodes()
	if _, present := q["episodes"]; present {
		parsed, err := strconv.Atoi(q.Get("episodes"))
		if err != nil || parsed <= 0 {
			h.writeError(w, rebalancer.CategoryInvalidInput, "episodes must be a positive integer")
			return nil, false
		}
		episodes = parsed
	}

	// Accept both tickers=A,B and tickers=A&tickers=B
	return h.train(w, r, rebalancer.Request{
		Tickers:  utils.NormalizeTickers(q["tickers"]...),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Episodes: episodes,
	})
}

func (h *Handler) train(w http.ResponseWriter, r *http.Request, req rebalancer.Request) (*rebalancer.Result, bool) {
	result, err := h.trainer.BuildAndTrain(r.Context(), req)
	if err != nil {
		category := rebalancer.CategoryOf(err)
		event := h.log.Warn()
		if category == rebalancer.CategoryInternal || category == rebalancer.CategoryProvider {
			event = h.log.Error()
		}
		event.Err(err).
			Str("category", string(category)).
			Strs("tickers", req.Tickers).
			Msg("Rebalancer training failed")
		h.writeError(w, category, err.Error())
		return nil, false
	}
	return result, true
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeError writes a categorized JSON error with the category's status
func (h *Handler) writeError(w http.ResponseWriter, category rebalancer.Category, message string) {
	h.writeJSON(w, category.HTTPStatus(), errorBody{Error: errorDetail{
		Category: category,
		Message:  message,
	}})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
