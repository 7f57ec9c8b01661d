package historical

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/finplanner/rebalancer/internal/clients/yahoo"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
)

// coverageSlack is how far cached history may start after the requested start
// (or end before the requested end) before it is refreshed. It absorbs weekends
// and exchange holidays.
const coverageSlack = 5 * 24 * time.Hour

var (
	// ErrUnknownInstrument is returned when the upstream provider does not know a symbol
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrNoPriceData is returned when no usable rows remain for the requested range
	ErrNoPriceData = errors.New("no price data for requested range")
	// ErrMissingPriceField is returned when history carries neither adjusted nor raw closes
	ErrMissingPriceField = errors.New("neither adjusted close nor close available")
	// ErrProviderUnavailable wraps upstream failures other than unknown symbols
	ErrProviderUnavailable = errors.New("price provider unavailable")
)

// HistoricalClient downloads daily bars from an upstream source
type HistoricalClient interface {
	GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]yahoo.HistoricalPrice, error)
}

// PricePath is a T x N price matrix aligned on a shared date axis
type PricePath struct {
	Dates   []string    `json:"dates"`
	Tickers []string    `json:"tickers"`
	Prices  [][]float64 `json:"prices"`
}

// Len returns T, the number of aligned rows
func (p *PricePath) Len() int {
	return len(p.Dates)
}

// Provider serves price paths from history.db, downloading missing history on demand
type Provider struct {
	historyDB *HistoryDB
	client    HistoricalClient
	source    string
	now       func() time.Time
	log       zerolog.Logger
}

// NewProvider creates a price path provider. A nil client serves cached history only.
func NewProvider(historyDB *HistoryDB, client HistoricalClient, log zerolog.Logger) *Provider {
	return &Provider{
		historyDB: historyDB,
		client:    client,
		source:    "yahoo",
		now:       time.Now,
		log:       log.With().Str("component", "price_provider").Logger(),
	}
}

// FetchPrices returns the aligned price path for tickers between start and the optional end.
// Each row uses the adjusted close when present, else the close. Dates missing a
// value for any ticker are dropped.
func (p *Provider) FetchPrices(ctx context.Context, tickers []string, start, end string) (*PricePath, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers", ErrNoPriceData)
	}

	series := make([]map[string]float64, len(tickers))
	for i, symbol := range tickers {
		prices, err := p.ensureHistory(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}

		values := make(map[string]float64, len(prices))
		withPrice := 0
		for _, row := range prices {
			if v, ok := row.Price(); ok {
				values[row.Date] = v
				withPrice++
			}
		}
		if len(prices) > 0 && withPrice == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingPriceField, symbol)
		}
		series[i] = values
	}

	path := align(tickers, series)
	if path.Len() == 0 {
		return nil, fmt.Errorf("%w: %v from %s", ErrNoPriceData, tickers, start)
	}

	p.log.Debug().
		Strs("tickers", tickers).
		Str("start", start).
		Str("end", end).
		Int("rows", path.Len()).
		Msg("Assembled price path")

	return path, nil
}

// Sync downloads history for symbol in [start, end) and stores it. Returns the number of rows stored.
func (p *Provider) Sync(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	if p.client == nil {
		return 0, fmt.Errorf("%w: no upstream client configured", ErrProviderUnavailable)
	}

	bars, err := p.client.GetHistoricalPrices(ctx, symbol, start, end)
	if err != nil {
		switch {
		case errors.Is(err, yahoo.ErrUnknownSymbol):
			return 0, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
		case errors.Is(err, yahoo.ErrNoPriceField):
			return 0, fmt.Errorf("%w: %s", ErrMissingPriceField, symbol)
		default:
			return 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	rows := make([]DailyPrice, 0, len(bars))
	for _, bar := range bars {
		row := DailyPrice{
			Date:          bar.Date.Format(utils.DateLayout),
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			AdjustedClose: bar.AdjClose,
		}
		if bar.Volume > 0 {
			volume := bar.Volume
			row.Volume = &volume
		}
		rows = append(rows, row)
	}

	if err := p.historyDB.SaveDailyPrices(symbol, p.source, rows); err != nil {
		return 0, fmt.Errorf("failed to store history for %s: %w", symbol, err)
	}

	p.log.Info().
		Str("symbol", symbol).
		Int("rows", len(rows)).
		Msg("Synced price history")

	return len(rows), nil
}

// ensureHistory returns cached rows, downloading first when the cache does not cover the range
func (p *Provider) ensureHistory(ctx context.Context, symbol, start, end string) ([]DailyPrice, error) {
	prices, err := p.historyDB.GetDailyPrices(symbol, start, end)
	if err != nil {
		return nil, err
	}
	if p.client == nil {
		return prices, nil
	}

	startTime, err := utils.ParseDate(start)
	if err != nil {
		return nil, err
	}
	endTime := utils.TruncateToDay(p.now()).Add(24 * time.Hour)
	if end != "" {
		if endTime, err = utils.ParseDate(end); err != nil {
			return nil, err
		}
		// The stored range is inclusive of end
		endTime = endTime.Add(24 * time.Hour)
	}

	if covers(prices, startTime, endTime) {
		return prices, nil
	}

	p.log.Debug().
		Str("symbol", symbol).
		Int("cached_rows", len(prices)).
		Msg("Cached history does not cover range, downloading")

	if _, err := p.Sync(ctx, symbol, startTime, endTime); err != nil {
		return nil, err
	}
	return p.historyDB.GetDailyPrices(symbol, start, end)
}

// covers reports whether cached rows span [start, end) within coverageSlack
func covers(prices []DailyPrice, start, end time.Time) bool {
	if len(prices) == 0 {
		return false
	}
	first, err := utils.ParseDate(prices[0].Date)
	if err != nil {
		return false
	}
	last, err := utils.ParseDate(prices[len(prices)-1].Date)
	if err != nil {
		return false
	}
	return first.Sub(start) <= coverageSlack && end.Sub(last) <= coverageSlack
}

// align keeps only the dates every series has a value for, in ascending order
func align(tickers []string, series []map[string]float64) *PricePath {
	path := &PricePath{
		Dates:   make([]string, 0),
		Tickers: append([]string(nil), tickers...),
		Prices:  make([][]float64, 0),
	}
	if len(series) == 0 {
		return path
	}

	dates := make([]string, 0, len(series[0]))
	for date := range series[0] {
		dates = append(dates, date)
	}
	// YYYY-MM-DD sorts lexically in date order
	sort.Strings(dates)

	for _, date := range dates {
		row := make([]float64, len(series))
		complete := true
		for i, values := range series {
			v, ok := values[date]
			if !ok {
				complete = false
				break
			}
			row[i] = v
		}
		if complete {
			path.Dates = append(path.Dates, date)
			path.Prices = append(path.Prices, row)
		}
	}
	return path
}
