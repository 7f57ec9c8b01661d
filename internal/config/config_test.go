package config

import (
	"path/filepath"
	"testing"

	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv("REBALANCER_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 0.1, cfg.Rebalancer.LearningRate)
	assert.Equal(t, 0.99, cfg.Rebalancer.Discount)
	assert.Equal(t, uint64(0), cfg.Rebalancer.Seed)
	assert.Equal(t, 500, cfg.Rebalancer.DefaultEpisodes)
	assert.Equal(t, 5000, cfg.Rebalancer.MaxEpisodes)
	assert.Empty(t, cfg.PriceSync.Symbols)
	assert.Equal(t, DefaultPriceSyncSchedule, cfg.PriceSync.Schedule)
	assert.Equal(t, 30, cfg.PriceSync.LookbackDays)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("REBALANCER_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RL_LEARNING_RATE", "0.5")
	t.Setenv("RL_TURNOVER_COST", "0")
	t.Setenv("RL_SEED", "18446744073709551615")
	t.Setenv("RL_RECOMMENDATION_MODE", "policy")
	t.Setenv("RL_STRICT_WEIGHTS", "1")
	t.Setenv("PRICE_SYNC_SYMBOLS", "spy, tlt,SPY")
	t.Setenv("PRICE_SYNC_SCHEDULE", "@every 6h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"SPY", "TLT"}, cfg.PriceSync.Symbols)

	svc, err := cfg.ServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.5, svc.Agent.LearningRate)
	assert.Equal(t, 0.0, svc.Agent.TurnoverCost)
	assert.Equal(t, uint64(18446744073709551615), svc.Agent.Seed)
	assert.Equal(t, rebalancer.ModePolicy, svc.Agent.RecommendationMode)
	assert.True(t, svc.Agent.StrictWeights)
}

func TestLoad_UnparseableValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("REBALANCER_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "eighty")
	t.Setenv("RL_EPSILON", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 0.1, cfg.Rebalancer.Epsilon)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:     8000,
			LogLevel: "info",
			Rebalancer: RebalancerConfig{
				LearningRate:       0.1,
				Discount:           0.99,
				Epsilon:            0.1,
				TurnoverCost:       0.001,
				Precision:          3,
				DefaultEpisodes:    500,
				MaxEpisodes:        5000,
				RecommendationMode: "terminal",
			},
			PriceSync: PriceSyncConfig{Schedule: DefaultPriceSyncSchedule, LookbackDays: 30},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"learning rate zero", func(c *Config) { c.Rebalancer.LearningRate = 0 }, true},
		{"epsilon above one", func(c *Config) { c.Rebalancer.Epsilon = 2 }, true},
		{"unknown mode", func(c *Config) { c.Rebalancer.RecommendationMode = "oracle" }, true},
		{"zero default episodes", func(c *Config) { c.Rebalancer.DefaultEpisodes = 0 }, true},
		{"max below default", func(c *Config) { c.Rebalancer.MaxEpisodes = 100 }, true},
		{"bad schedule ignored without symbols", func(c *Config) { c.PriceSync.Schedule = "whenever" }, false},
		{"bad schedule with symbols", func(c *Config) {
			c.PriceSync.Symbols = []string{"SPY"}
			c.PriceSync.Schedule = "30 22 * * *"
		}, true},
		{"zero lookback with symbols", func(c *Config) {
			c.PriceSync.Symbols = []string{"SPY"}
			c.PriceSync.LookbackDays = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
