// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/finplanner/rebalancer/internal/config"
	"github.com/finplanner/rebalancer/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	walCheckpointSchedule = "0 0 * * * *" // hourly
	integritySchedule     = "0 0 3 * * *" // daily at 03:00
)

// RegisterJobs creates the scheduler and registers all jobs with it.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	instances := &JobInstances{}

	// Job 1: Price sync (only when a watchlist is configured)
	if len(cfg.PriceSync.Symbols) > 0 {
		if container.PriceProvider == nil {
			return nil, fmt.Errorf("price provider must be initialized before jobs")
		}
		job := scheduler.NewPriceSyncJob(container.PriceProvider, cfg.PriceSync.Symbols, cfg.PriceSync.LookbackDays)
		job.SetLogger(log.With().Str("job", job.Name()).Logger())
		if err := sched.AddJob(cfg.PriceSync.Schedule, job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
		instances.PriceSync = job
	}

	// Job 2: WAL checkpoints
	walJob := scheduler.NewCheckWALCheckpointsJob(container.Databases()...)
	walJob.SetLogger(log.With().Str("job", walJob.Name()).Logger())
	if err := sched.AddJob(walCheckpointSchedule, walJob); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", walJob.Name(), err)
	}
	instances.CheckWALCheckpoints = walJob

	// Job 3: Integrity checks
	integrityJob := scheduler.NewCheckDatabasesJob(container.Databases()...)
	integrityJob.SetLogger(log.With().Str("job", integrityJob.Name()).Logger())
	if err := sched.AddJob(integritySchedule, integrityJob); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", integrityJob.Name(), err)
	}
	instances.CheckDatabases = integrityJob

	container.Scheduler = sched
	log.Info().Int("jobs", sched.Jobs()).Msg("Jobs registered")
	return instances, nil
}
