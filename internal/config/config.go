// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/finplanner/rebalancer/internal/modules/rebalancer"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// DefaultPriceSyncSchedule runs after the US close on weekdays
const DefaultPriceSyncSchedule = "0 30 22 * * MON-FRI"

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for all databases (always absolute)
	LogLevel     string
	Port         int
	DevMode      bool
	YahooBaseURL string
	Rebalancer   RebalancerConfig
	PriceSync    PriceSyncConfig
}

// RebalancerConfig holds the agent hyperparameters and request limits
type RebalancerConfig struct {
	LearningRate       float64
	Discount           float64
	Epsilon            float64
	TurnoverCost       float64
	Precision          int
	Seed               uint64 // 0 = time-based seed per request
	DefaultEpisodes    int
	MaxEpisodes        int
	RecommendationMode string
	StrictWeights      bool
}

// PriceSyncConfig holds the background price refresh settings
type PriceSyncConfig struct {
	Symbols      []string // Empty disables the job
	Schedule     string
	LookbackDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("REBALANCER_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	agent := rebalancer.DefaultConfig()
	cfg := &Config{
		DataDir:      absDataDir,
		Port:         getEnvAsInt("GO_PORT", 8000),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		YahooBaseURL: getEnv("YAHOO_BASE_URL", ""),
		Rebalancer: RebalancerConfig{
			LearningRate:       getEnvAsFloat("RL_LEARNING_RATE", agent.LearningRate),
			Discount:           getEnvAsFloat("RL_DISCOUNT", agent.Discount),
			Epsilon:            getEnvAsFloat("RL_EPSILON", agent.Epsilon),
			TurnoverCost:       getEnvAsFloat("RL_TURNOVER_COST", agent.TurnoverCost),
			Precision:          getEnvAsInt("RL_PRECISION", agent.Precision),
			Seed:               getEnvAsUint64("RL_SEED", 0),
			DefaultEpisodes:    getEnvAsInt("RL_DEFAULT_EPISODES", rebalancer.DefaultEpisodes),
			MaxEpisodes:        getEnvAsInt("RL_MAX_EPISODES", rebalancer.DefaultMaxEpisodes),
			RecommendationMode: getEnv("RL_RECOMMENDATION_MODE", string(rebalancer.ModeTerminal)),
			StrictWeights:      getEnvAsBool("RL_STRICT_WEIGHTS", false),
		},
		PriceSync: PriceSyncConfig{
			Symbols:      utils.NormalizeTickers(getEnv("PRICE_SYNC_SYMBOLS", "")),
			Schedule:     getEnv("PRICE_SYNC_SCHEDULE", DefaultPriceSyncSchedule),
			LookbackDays: getEnvAsInt("PRICE_SYNC_LOOKBACK_DAYS", 30),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q (expected debug, info, warn or error)", c.LogLevel)
	}

	if _, err := c.ServiceConfig(); err != nil {
		return err
	}
	if c.Rebalancer.DefaultEpisodes <= 0 {
		return fmt.Errorf("RL_DEFAULT_EPISODES must be positive, got %d", c.Rebalancer.DefaultEpisodes)
	}
	if c.Rebalancer.MaxEpisodes < c.Rebalancer.DefaultEpisodes {
		return fmt.Errorf("RL_MAX_EPISODES (%d) must be at least RL_DEFAULT_EPISODES (%d)",
			c.Rebalancer.MaxEpisodes, c.Rebalancer.DefaultEpisodes)
	}

	if len(c.PriceSync.Symbols) > 0 {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.PriceSync.Schedule); err != nil {
			return fmt.Errorf("invalid PRICE_SYNC_SCHEDULE %q: %w", c.PriceSync.Schedule, err)
		}
		if c.PriceSync.LookbackDays <= 0 {
			return fmt.Errorf("PRICE_SYNC_LOOKBACK_DAYS must be positive, got %d", c.PriceSync.LookbackDays)
		}
	}

	return nil
}

// ServiceConfig converts the rebalancer settings into the service configuration
func (c *Config) ServiceConfig() (rebalancer.ServiceConfig, error) {
	mode, err := rebalancer.ParseRecommendationMode(c.Rebalancer.RecommendationMode)
	if err != nil {
		return rebalancer.ServiceConfig{}, fmt.Errorf("invalid RL_RECOMMENDATION_MODE: %w", err)
	}

	agent := rebalancer.Config{
		LearningRate:       c.Rebalancer.LearningRate,
		Discount:           c.Rebalancer.Discount,
		Epsilon:            c.Rebalancer.Epsilon,
		TurnoverCost:       c.Rebalancer.TurnoverCost,
		Precision:          c.Rebalancer.Precision,
		Seed:               c.Rebalancer.Seed,
		RecommendationMode: mode,
		StrictWeights:      c.Rebalancer.StrictWeights,
	}
	if err := agent.Validate(); err != nil {
		return rebalancer.ServiceConfig{}, err
	}

	return rebalancer.ServiceConfig{
		Agent:           agent,
		DefaultEpisodes: c.Rebalancer.DefaultEpisodes,
		MaxEpisodes:     c.Rebalancer.MaxEpisodes,
	}, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
