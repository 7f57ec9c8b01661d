// Package yahoo provides a client for the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

var (
	// ErrUnknownSymbol is returned when Yahoo does not know the requested symbol
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrNoPriceField is returned when a response carries neither adjusted close nor close prices
	ErrNoPriceField = errors.New("neither adjusted close nor close prices in response")
)

// Client is a Yahoo Finance API client
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// GetHistoricalPrices fetches daily bars for symbol in [start, end).
// Bar dates are truncated to midnight UTC.
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]HistoricalPrice, error) {
	params := url.Values{}
	params.Add("period1", fmt.Sprintf("%d", start.Unix()))
	params.Add("period2", fmt.Sprintf("%d", end.Unix()))
	params.Add("interval", "1d")
	params.Add("events", "div,splits")
	params.Add("includeAdjustedClose", "true")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	c.log.Debug().
		Str("symbol", symbol).
		Time("start", start).
		Time("end", end).
		Msg("Fetching historical prices")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical prices for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result chartResponse
	// Error responses also carry a chart payload, so decode before checking status
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode == http.StatusNotFound || isNotFound(result.Chart.Error) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %s: %s", result.Chart.Error.Code, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	prices, err := convertChart(result.Chart.Result[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(prices)).
		Msg("Fetched historical prices")

	return prices, nil
}

func isNotFound(e *chartError) bool {
	return e != nil && strings.EqualFold(e.Code, "Not Found")
}

// convertChart flattens the columnar chart arrays into bars
func convertChart(r chartResult) ([]HistoricalPrice, error) {
	if len(r.Timestamp) == 0 {
		return []HistoricalPrice{}, nil
	}

	var closes, opens, highs, lows, adj []*float64
	var volumes []*int64
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		closes, opens, highs, lows, volumes = q.Close, q.Open, q.High, q.Low, q.Volume
	}
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}
	if closes == nil && adj == nil {
		return nil, ErrNoPriceField
	}

	prices := make([]HistoricalPrice, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		bar := HistoricalPrice{
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:     at(opens, i),
			High:     at(highs, i),
			Low:      at(lows, i),
			Close:    at(closes, i),
			AdjClose: at(adj, i),
		}
		if i < len(volumes) && volumes[i] != nil {
			bar.Volume = *volumes[i]
		}
		prices = append(prices, bar)
	}
	return prices, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}
