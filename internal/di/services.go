// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/finplanner/rebalancer/internal/clients/yahoo"
	"github.com/finplanner/rebalancer/internal/config"
	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/rs/zerolog"
)

// InitializeServices creates the clients and services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.HistoryRepo == nil || container.RunRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	serviceCfg, err := cfg.ServiceConfig()
	if err != nil {
		return err
	}

	baseURL := cfg.YahooBaseURL
	if baseURL == "" {
		baseURL = yahoo.DefaultBaseURL
	}
	container.YahooClient = yahoo.NewClient(baseURL, log)

	container.PriceProvider = historical.NewProvider(container.HistoryRepo, container.YahooClient, log)
	container.RebalancerService = rebalancer.NewService(container.PriceProvider, container.RunRepo, serviceCfg, log)

	log.Debug().
		Str("yahoo_base_url", baseURL).
		Str("recommendation_mode", string(serviceCfg.Agent.RecommendationMode)).
		Int("max_episodes", serviceCfg.MaxEpisodes).
		Msg("Services initialized")
	return nil
}
