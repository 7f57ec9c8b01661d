// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.HistoryDB == nil || container.RebalancerDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}

	container.HistoryRepo = historical.NewHistoryDB(container.HistoryDB.Conn(), log)
	container.RunRepo = rebalancer.NewRunRepository(container.RebalancerDB.Conn(), log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
