package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartWithAdjClose = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD"},
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {
        "quote": [{
          "open": [187.15, 184.22, 182.15],
          "high": [188.44, 185.88, 183.09],
          "low": [183.89, 183.43, 180.88],
          "close": [185.64, 184.25, null],
          "volume": [82488700, 58414500, null]
        }],
        "adjclose": [{"adjclose": [184.94, 183.55, null]}]
      }
    }],
    "error": null
  }
}`

const chartCloseOnly = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "MSFT"},
      "timestamp": [1704205800, 1704292200],
      "indicators": {"quote": [{"close": [370.87, 370.60]}]}
    }],
    "error": null
  }
}`

const chartNoPrices = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "ODD"},
      "timestamp": [1704205800],
      "indicators": {"quote": []}
    }],
    "error": null
  }
}`

const chartNotFound = `{
  "chart": {
    "result": null,
    "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}
  }
}`

func newTestClient(t *testing.T, status int, body string) (*Client, *http.Request) {
	t.Helper()
	var captured http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL, zerolog.Nop()), &captured
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	client := NewClient("", zerolog.Nop())
	assert.Equal(t, DefaultBaseURL, client.baseURL)

	client = NewClient("http://localhost:9999/", zerolog.Nop())
	assert.Equal(t, "http://localhost:9999", client.baseURL)
}

func TestGetHistoricalPrices_PrefersAdjustedClose(t *testing.T) {
	client, req := newTestClient(t, http.StatusOK, chartWithAdjClose)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	prices, err := client.GetHistoricalPrices(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	require.Len(t, prices, 3)

	assert.Equal(t, "/v8/finance/chart/AAPL", req.URL.Path)
	assert.Equal(t, "1d", req.URL.Query().Get("interval"))
	assert.Equal(t, "1704067200", req.URL.Query().Get("period1"))
	assert.Equal(t, "1704412800", req.URL.Query().Get("period2"))
	assert.NotEmpty(t, req.Header.Get("User-Agent"))

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), prices[0].Date)
	price, ok := prices[0].Price()
	assert.True(t, ok)
	assert.Equal(t, 184.94, price)
	assert.Equal(t, int64(82488700), prices[0].Volume)

	// Null bars carry no price at all
	_, ok = prices[2].Price()
	assert.False(t, ok)
	assert.Equal(t, int64(0), prices[2].Volume)
}

func TestGetHistoricalPrices_FallsBackToClose(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, chartCloseOnly)

	prices, err := client.GetHistoricalPrices(context.Background(), "MSFT", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	require.Len(t, prices, 2)

	assert.Nil(t, prices[0].AdjClose)
	price, ok := prices[1].Price()
	assert.True(t, ok)
	assert.Equal(t, 370.60, price)
}

func TestGetHistoricalPrices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no price arrays", http.StatusOK, chartNoPrices, ErrNoPriceField},
		{"chart not found", http.StatusOK, chartNotFound, ErrUnknownSymbol},
		{"http not found", http.StatusNotFound, chartNotFound, ErrUnknownSymbol},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, ErrUnknownSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.status, tt.body)
			_, err := client.GetHistoricalPrices(context.Background(), "XXX", time.Now().AddDate(0, -1, 0), time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetHistoricalPrices_ServerError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusInternalServerError, "upstream failure")

	_, err := client.GetHistoricalPrices(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGetHistoricalPrices_EmptyTimestamps(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"indicators":{"quote":[{}]}}],"error":null}}`)

	prices, err := client.GetHistoricalPrices(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)
	assert.Empty(t, prices)
}
