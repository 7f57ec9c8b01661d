package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
)

const (
	// DefaultPriceSyncLookbackDays is the history window refreshed per run
	DefaultPriceSyncLookbackDays = 30
	priceSyncTimeout             = 10 * time.Minute
)

// PriceSyncer downloads and stores daily history for one symbol
type PriceSyncer interface {
	Sync(ctx context.Context, symbol string, start, end time.Time) (int, error)
}

// PriceSyncJob refreshes recent daily prices for a watchlist
type PriceSyncJob struct {
	log          zerolog.Logger
	syncer       PriceSyncer
	symbols      []string
	lookbackDays int
	now          func() time.Time
}

// NewPriceSyncJob creates a new PriceSyncJob. A non-positive lookback uses the default.
func NewPriceSyncJob(syncer PriceSyncer, symbols []string, lookbackDays int) *PriceSyncJob {
	if lookbackDays <= 0 {
		lookbackDays = DefaultPriceSyncLookbackDays
	}
	return &PriceSyncJob{
		log:          zerolog.Nop(),
		syncer:       syncer,
		symbols:      utils.NormalizeTickers(symbols...),
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// SetLogger sets the logger for the job
func (j *PriceSyncJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Symbols returns the watchlist
func (j *PriceSyncJob) Symbols() []string {
	return j.symbols
}

// Run executes the price sync job. Every symbol is attempted; the job fails
// only if at least one symbol could not be synced.
func (j *PriceSyncJob) Run() error {
	if len(j.symbols) == 0 {
		j.log.Debug().Msg("No symbols configured for price sync")
		return nil
	}

	defer utils.OperationTimer("price_sync", j.log)()

	ctx, cancel := context.WithTimeout(context.Background(), priceSyncTimeout)
	defer cancel()

	end := utils.TruncateToDay(j.now()).Add(24 * time.Hour)
	start := end.AddDate(0, 0, -j.lookbackDays)

	var failed []string
	total := 0
	for _, symbol := range j.symbols {
		count, err := j.syncer.Sync(ctx, symbol, start, end)
		if err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to sync prices")
			failed = append(failed, symbol)
			continue
		}
		total += count
		j.log.Debug().Str("symbol", symbol).Int("rows", count).Msg("Synced prices")
	}

	j.log.Info().
		Int("symbols", len(j.symbols)).
		Int("failed", len(failed)).
		Int("rows", total).
		Msg("Price sync completed")

	if len(failed) > 0 {
		return fmt.Errorf("price sync failed for %d of %d symbols: %v", len(failed), len(j.symbols), failed)
	}
	return nil
}
