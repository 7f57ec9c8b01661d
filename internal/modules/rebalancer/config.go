package rebalancer

import (
	"fmt"
	"strings"
)

// RecommendationMode selects how the terminal state for a recommendation is reached
type RecommendationMode string

const (
	// ModeTerminal replays the run holding the simulator's own evolving weights,
	// then asks the policy for the best action in the final state.
	ModeTerminal RecommendationMode = "terminal"
	// ModePolicy replays the run following the greedy policy at every step.
	ModePolicy RecommendationMode = "policy"
)

// ParseRecommendationMode accepts "terminal" or "policy", case-insensitively.
// Empty input means ModeTerminal.
func ParseRecommendationMode(s string) (RecommendationMode, error) {
	switch RecommendationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTerminal:
		return ModeTerminal, nil
	case ModePolicy:
		return ModePolicy, nil
	default:
		return "", fmt.Errorf("unknown recommendation mode %q (expected terminal or policy)", s)
	}
}

// Config holds the learning hyperparameters of an Agent
type Config struct {
	LearningRate float64
	Discount     float64
	Epsilon      float64
	// TurnoverCost per unit of L1 turnover. Zero disables the penalty.
	TurnoverCost float64
	// Precision is the number of decimals kept in state and action keys
	Precision          int
	Seed               uint64
	RecommendationMode RecommendationMode
	// StrictWeights rejects negative or non-normalized weight vectors in the simulator
	StrictWeights bool
}

// DefaultConfig returns the standard hyperparameters
func DefaultConfig() Config {
	return Config{
		LearningRate:       0.1,
		Discount:           0.99,
		Epsilon:            0.1,
		TurnoverCost:       0.001,
		Precision:          DefaultPrecision,
		Seed:               1,
		RecommendationMode: ModeTerminal,
	}
}

// Validate checks every hyperparameter is inside its domain
func (c Config) Validate() error {
	if !(c.LearningRate > 0 && c.LearningRate <= 1) {
		return fmt.Errorf("%w: learning rate must be in (0, 1], got %v", ErrInvalidConfig, c.LearningRate)
	}
	if !(c.Discount >= 0 && c.Discount <= 1) {
		return fmt.Errorf("%w: discount must be in [0, 1], got %v", ErrInvalidConfig, c.Discount)
	}
	if !(c.Epsilon >= 0 && c.Epsilon <= 1) {
		return fmt.Errorf("%w: epsilon must be in [0, 1], got %v", ErrInvalidConfig, c.Epsilon)
	}
	if !(c.TurnoverCost >= 0) {
		return fmt.Errorf("%w: turnover cost must be non-negative, got %v", ErrInvalidConfig, c.TurnoverCost)
	}
	if c.Precision < 0 || c.Precision > maxPrecision {
		return fmt.Errorf("%w: precision must be in [0, %d], got %d", ErrInvalidConfig, maxPrecision, c.Precision)
	}
	if _, err := ParseRecommendationMode(string(c.RecommendationMode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
