package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/finplanner/rebalancer/internal/config"
	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:  t.TempDir(),
		Port:     8000,
		LogLevel: "info",
		Rebalancer: config.RebalancerConfig{
			LearningRate:       0.1,
			Discount:           0.99,
			Epsilon:            0.1,
			TurnoverCost:       0.001,
			Precision:          3,
			DefaultEpisodes:    500,
			MaxEpisodes:        5000,
			RecommendationMode: "terminal",
		},
		PriceSync: config.PriceSyncConfig{
			Schedule:     config.DefaultPriceSyncSchedule,
			LookbackDays: 30,
		},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close()

	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.RebalancerDB)
	assert.NotNil(t, container.YahooClient)
	assert.NotNil(t, container.HistoryRepo)
	assert.NotNil(t, container.RunRepo)
	assert.NotNil(t, container.PriceProvider)
	assert.NotNil(t, container.RebalancerService)
	assert.NotNil(t, container.Scheduler)
	assert.Equal(t, rebalancer.DefaultEpisodes, container.RebalancerService.DefaultEpisodes())

	// No watchlist means no price sync job
	assert.Nil(t, jobs.PriceSync)
	assert.NotNil(t, jobs.CheckDatabases)
	assert.NotNil(t, jobs.CheckWALCheckpoints)
	assert.Equal(t, 2, container.Scheduler.Jobs())

	assert.FileExists(t, filepath.Join(cfg.DataDir, "history.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "rebalancer.db"))

	// Maintenance jobs run against the wired databases
	assert.NoError(t, jobs.CheckDatabases.Run())
	assert.NoError(t, jobs.CheckWALCheckpoints.Run())
}

func TestWire_WithPriceSync(t *testing.T) {
	cfg := testConfig(t)
	cfg.PriceSync.Symbols = []string{"SPY", "TLT"}

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, jobs.PriceSync)
	assert.Equal(t, []string{"SPY", "TLT"}, jobs.PriceSync.Symbols())
	assert.Equal(t, 3, container.Scheduler.Jobs())
}

func TestWire_InvalidServiceConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rebalancer.RecommendationMode = "oracle"

	container, jobs, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
	assert.Nil(t, jobs)
}

func TestInitializeDatabases_SchemaMigration(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	// Verify schemas are applied by checking that we can query
	_, err = container.HistoryDB.Conn().Exec("SELECT COUNT(*) FROM daily_prices")
	assert.NoError(t, err)
	_, err = container.RebalancerDB.Conn().Exec("SELECT COUNT(*) FROM training_runs")
	assert.NoError(t, err)
	assert.Len(t, container.Databases(), 2)
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	// A regular file cannot hold a data directory
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := testConfig(t)
	cfg.DataDir = filepath.Join(blocker, "data")

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}

func TestInitializeRepositories_RequiresDatabases(t *testing.T) {
	assert.Error(t, InitializeRepositories(&Container{}, zerolog.Nop()))
	assert.Error(t, InitializeServices(&Container{}, testConfig(t), zerolog.Nop()))

	_, err := RegisterJobs(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
