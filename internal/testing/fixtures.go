package testing

import (
	"database/sql"
	"testing"
	"time"
)

// PriceFixture is one daily bar inserted into history.db by InsertDailyPrices.
// A nil AdjustedClose stores NULL.
type PriceFixture struct {
	Date          string
	Close         float64
	AdjustedClose *float64
}

// Float64 returns a pointer to v, for optional fixture fields
func Float64(v float64) *float64 {
	return &v
}

// NewCloseSeries builds one fixture per date with the given closes and matching adjusted closes
func NewCloseSeries(dates []string, closes []float64) []PriceFixture {
	fixtures := make([]PriceFixture, 0, len(dates))
	for i, date := range dates {
		fixtures = append(fixtures, PriceFixture{
			Date:          date,
			Close:         closes[i],
			AdjustedClose: Float64(closes[i]),
		})
	}
	return fixtures
}

// InsertDailyPrices writes fixtures into the daily_prices table
func InsertDailyPrices(t *testing.T, db *sql.DB, symbol string, fixtures []PriceFixture) {
	t.Helper()

	for _, f := range fixtures {
		date, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			t.Fatalf("Invalid fixture date %q: %v", f.Date, err)
		}

		var adj sql.NullFloat64
		if f.AdjustedClose != nil {
			adj = sql.NullFloat64{Float64: *f.AdjustedClose, Valid: true}
		}

		_, err = db.Exec(`
			INSERT OR REPLACE INTO daily_prices
			(symbol, date, open, high, low, close, adjusted_close, volume, source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'fixture', ?)
		`, symbol, date.UTC().Unix(), f.Close, f.Close, f.Close, f.Close, adj, 1000, time.Now().Unix())
		if err != nil {
			t.Fatalf("Failed to insert fixture price for %s on %s: %v", symbol, f.Date, err)
		}
	}
}
