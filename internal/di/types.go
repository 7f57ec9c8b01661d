/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/finplanner/rebalancer/internal/clients/yahoo"
	"github.com/finplanner/rebalancer/internal/database"
	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/finplanner/rebalancer/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: history.db (daily prices) and rebalancer.db (training runs)
 * - Clients: Yahoo Finance chart API
 * - Repositories: price history and stored runs
 * - Services: price path provider and the rebalancer training service
 * - Scheduler: cron jobs for price sync and database maintenance
 */
type Container struct {
	// Databases
	HistoryDB    *database.DB
	RebalancerDB *database.DB

	// Clients
	YahooClient *yahoo.Client

	// Repositories
	HistoryRepo *historical.HistoryDB
	RunRepo     *rebalancer.RunRepository

	// Services
	PriceProvider     *historical.Provider
	RebalancerService *rebalancer.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns every open database, for maintenance jobs and status reporting
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.HistoryDB, c.RebalancerDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	PriceSync           *scheduler.PriceSyncJob // nil when no symbols are configured
	CheckDatabases      *scheduler.CheckDatabasesJob
	CheckWALCheckpoints *scheduler.CheckWALCheckpointsJob
}
