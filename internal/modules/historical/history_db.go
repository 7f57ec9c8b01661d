// Package historical stores daily price history and assembles aligned price paths.
package historical

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finplanner/rebalancer/internal/database"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
)

// HistoryDB provides access to historical price data
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// DailyPrice represents a daily OHLCV price point
type DailyPrice struct {
	Date          string   `json:"date"`
	Open          *float64 `json:"open,omitempty"`
	High          *float64 `json:"high,omitempty"`
	Low           *float64 `json:"low,omitempty"`
	Close         *float64 `json:"close,omitempty"`
	AdjustedClose *float64 `json:"adjusted_close,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
}

// Price returns the adjusted close when present, else the close
func (p DailyPrice) Price() (float64, bool) {
	if p.AdjustedClose != nil {
		return *p.AdjustedClose, true
	}
	if p.Close != nil {
		return *p.Close, true
	}
	return 0, false
}

// SymbolCoverage describes the stored history of one symbol
type SymbolCoverage struct {
	Symbol    string `json:"symbol"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
	Count     int    `json:"count"`
}

// GetDailyPrices fetches daily prices for a symbol in [start, end], oldest first.
// An empty end leaves the range open.
func (h *HistoryDB) GetDailyPrices(symbol, start, end string) ([]DailyPrice, error) {
	startUnix, err := utils.DateToUnix(start)
	if err != nil {
		return nil, err
	}
	endUnix := int64(1<<62 - 1)
	if end != "" {
		if endUnix, err = utils.DateToUnix(end); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT date, open, high, low, close, adjusted_close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := h.db.Query(query, symbol, startUnix, endUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	prices := make([]DailyPrice, 0)
	for rows.Next() {
		var dateUnix int64
		var open, high, low, closePrice, adj sql.NullFloat64
		var volume sql.NullInt64
		if err := rows.Scan(&dateUnix, &open, &high, &low, &closePrice, &adj, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		p := DailyPrice{
			Date:          utils.UnixToDate(dateUnix),
			Open:          nullFloat(open),
			High:          nullFloat(high),
			Low:           nullFloat(low),
			Close:         nullFloat(closePrice),
			AdjustedClose: nullFloat(adj),
		}
		if volume.Valid {
			p.Volume = &volume.Int64
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// SaveDailyPrices upserts prices for a symbol in a single transaction
func (h *HistoryDB) SaveDailyPrices(symbol, source string, prices []DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	now := time.Now().Unix()
	err := database.WithTransaction(h.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO daily_prices
			(symbol, date, open, high, low, close, adjusted_close, volume, source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, date) DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				adjusted_close = excluded.adjusted_close,
				volume = excluded.volume,
				source = excluded.source,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range prices {
			dateUnix, err := utils.DateToUnix(p.Date)
			if err != nil {
				return err
			}
			var volume sql.NullInt64
			if p.Volume != nil {
				volume = sql.NullInt64{Int64: *p.Volume, Valid: true}
			}
			if _, err := stmt.Exec(
				symbol, dateUnix,
				toNull(p.Open), toNull(p.High), toNull(p.Low), toNull(p.Close), toNull(p.AdjustedClose),
				volume, source, now,
			); err != nil {
				return fmt.Errorf("failed to upsert %s on %s: %w", symbol, p.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Debug().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Saved daily prices")

	return nil
}

// ListSymbols returns the stored coverage of every symbol, alphabetically
func (h *HistoryDB) ListSymbols() ([]SymbolCoverage, error) {
	rows, err := h.db.Query(`
		SELECT symbol, MIN(date), MAX(date), COUNT(*)
		FROM daily_prices
		GROUP BY symbol
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]SymbolCoverage, 0)
	for rows.Next() {
		var c SymbolCoverage
		var first, last int64
		if err := rows.Scan(&c.Symbol, &first, &last, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan symbol coverage: %w", err)
		}
		c.FirstDate = utils.UnixToDate(first)
		c.LastDate = utils.UnixToDate(last)
		symbols = append(symbols, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
