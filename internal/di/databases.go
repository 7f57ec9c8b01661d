// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/finplanner/rebalancer/internal/config"
	"github.com/finplanner/rebalancer/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. history.db - Daily price history (re-downloadable from Yahoo)
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileCache,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	// 2. rebalancer.db - Training runs and learned policies
	rebalancerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "rebalancer.db"),
		Profile: database.ProfileStandard,
		Name:    "rebalancer",
	})
	if err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to initialize rebalancer database: %w", err)
	}
	container.RebalancerDB = rebalancerDB

	// Apply schemas to all databases (single source of truth)
	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			historyDB.Close()
			rebalancerDB.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("All databases initialized and schemas applied")

	return container, nil
}
