package rebalancer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.1, cfg.LearningRate)
	assert.Equal(t, 0.99, cfg.Discount)
	assert.Equal(t, 0.1, cfg.Epsilon)
	assert.Equal(t, 0.001, cfg.TurnoverCost)
	assert.Equal(t, 3, cfg.Precision)
	assert.Equal(t, ModeTerminal, cfg.RecommendationMode)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"learning rate one", func(c *Config) { c.LearningRate = 1 }, true},
		{"learning rate zero", func(c *Config) { c.LearningRate = 0 }, false},
		{"learning rate above one", func(c *Config) { c.LearningRate = 1.5 }, false},
		{"learning rate NaN", func(c *Config) { c.LearningRate = math.NaN() }, false},
		{"discount zero", func(c *Config) { c.Discount = 0 }, true},
		{"discount negative", func(c *Config) { c.Discount = -0.1 }, false},
		{"epsilon one", func(c *Config) { c.Epsilon = 1 }, true},
		{"epsilon above one", func(c *Config) { c.Epsilon = 1.01 }, false},
		{"zero turnover cost", func(c *Config) { c.TurnoverCost = 0 }, true},
		{"negative turnover cost", func(c *Config) { c.TurnoverCost = -0.01 }, false},
		{"precision zero", func(c *Config) { c.Precision = 0 }, true},
		{"precision too large", func(c *Config) { c.Precision = 10 }, false},
		{"policy mode", func(c *Config) { c.RecommendationMode = ModePolicy }, true},
		{"unknown mode", func(c *Config) { c.RecommendationMode = "oracle" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestParseRecommendationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RecommendationMode
		wantErr bool
	}{
		{"", ModeTerminal, false},
		{"terminal", ModeTerminal, false},
		{" Policy ", ModePolicy, false},
		{"greedy", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRecommendationMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
