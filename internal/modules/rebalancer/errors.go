package rebalancer

import (
	"errors"
	"net/http"

	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/finplanner/rebalancer/internal/modules/simulator"
)

// Category classifies failures surfaced to API callers
type Category string

const (
	CategoryInvalidInput        Category = "invalid_input"
	CategoryUnknownInstrument   Category = "unknown_instrument"
	CategoryInsufficientHistory Category = "insufficient_history"
	CategoryDataIntegrity       Category = "data_integrity"
	CategoryConfiguration       Category = "configuration"
	CategoryProvider            Category = "provider"
	CategoryInternal            Category = "internal"
)

var (
	// ErrNoTickers is returned when a request names no instruments
	ErrNoTickers = errors.New("at least one ticker is required")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form or reversed ranges
	ErrInvalidDate = errors.New("invalid date range")
	// ErrInvalidEpisodes is returned for a negative or out-of-range episode count
	ErrInvalidEpisodes = errors.New("invalid episode count")
	// ErrInsufficientHistory is returned when fewer than 2 aligned time steps exist
	ErrInsufficientHistory = errors.New("at least 2 time steps are required")
	// ErrInvalidConfig is returned for hyperparameters outside their domain
	ErrInvalidConfig = errors.New("invalid agent configuration")
	// ErrRunNotFound is returned when a stored training run does not exist
	ErrRunNotFound = errors.New("training run not found")
)

// Error is a categorized failure carrying a client-visible message
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// categorize wraps err with its category. Nil stays nil.
func categorize(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Category: CategoryOf(err), Message: err.Error(), Err: err}
}

// CategoryOf classifies err by the sentinel it wraps
func CategoryOf(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}

	switch {
	case errors.Is(err, ErrNoTickers),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidEpisodes):
		return CategoryInvalidInput
	case errors.Is(err, historical.ErrUnknownInstrument):
		return CategoryUnknownInstrument
	case errors.Is(err, ErrInsufficientHistory),
		errors.Is(err, historical.ErrNoPriceData):
		return CategoryInsufficientHistory
	case errors.Is(err, simulator.ErrInvalidPrices),
		errors.Is(err, historical.ErrMissingPriceField):
		return CategoryDataIntegrity
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, simulator.ErrWeightsLength),
		errors.Is(err, simulator.ErrWeightsInvalid):
		return CategoryConfiguration
	case errors.Is(err, historical.ErrProviderUnavailable):
		return CategoryProvider
	default:
		return CategoryInternal
	}
}

// HTTPStatus maps a category to the response status used by the API
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryInvalidInput, CategoryConfiguration:
		return http.StatusBadRequest
	case CategoryUnknownInstrument:
		return http.StatusNotFound
	case CategoryInsufficientHistory, CategoryDataIntegrity:
		return http.StatusUnprocessableEntity
	case CategoryProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
