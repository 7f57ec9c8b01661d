// Package rebalancer learns portfolio weight policies with tabular Q-learning
// and serves allocation recommendations against an equal-weight benchmark.
package rebalancer

import (
	"fmt"
	"math/rand/v2"

	"github.com/finplanner/rebalancer/internal/modules/simulator"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// seedStream decorrelates the second PCG word from the seed
const seedStream = 0x9e3779b97f4a7c15

// Agent is a tabular Q-learner bound to one simulator. It is not safe for concurrent use.
type Agent struct {
	cfg      Config
	sim      *simulator.Simulator
	rng      *rand.Rand
	q        *QTable
	episodes int
	log      zerolog.Logger
}

// NewAgent builds an agent and its own simulator over prices.
// The agent's exploration draws and the simulator's Dirichlet sampling share one
// generator seeded from cfg.Seed, so training is reproducible.
func NewAgent(prices [][]float64, cfg Config, log zerolog.Logger) (*Agent, error) {
	if cfg.RecommendationMode == "" {
		cfg.RecommendationMode = ModeTerminal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^seedStream)

	// The simulator treats 0 as "use default", so a disabled cost is passed as negative
	cost := cfg.TurnoverCost
	if cost == 0 {
		cost = -1
	}

	sim, err := simulator.New(prices, simulator.Options{
		TurnoverCost:  cost,
		Source:        src,
		StrictWeights: cfg.StrictWeights,
	})
	if err != nil {
		return nil, err
	}

	return &Agent{
		cfg: cfg,
		sim: sim,
		rng: rand.New(src),
		q:   NewQTable(),
		log: log.With().Str("component", "rebalancer_agent").Logger(),
	}, nil
}

// StateKey discretizes a simulator state
func (a *Agent) StateKey(s simulator.State) Key {
	return EncodeKey(s.Vector(), a.cfg.Precision)
}

// ActionKey discretizes a weight vector
func (a *Agent) ActionKey(weights []float64) Key {
	return EncodeKey(weights, a.cfg.Precision)
}

// ChooseAction is epsilon-greedy over the actions known for state.
// A state without actions always explores and draws nothing for epsilon.
func (a *Agent) ChooseAction(state Key) Key {
	best, _, ok := a.q.Best(state)
	if !ok || a.rng.Float64() < a.cfg.Epsilon {
		return a.ActionKey(a.sim.SampleRandomAction())
	}
	return best
}

// Train runs exactly episodes full passes over the price path
func (a *Agent) Train(episodes int) error {
	if episodes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEpisodes, episodes)
	}

	timer := utils.NewTimer("rebalancer_train", a.log)
	for ep := 0; ep < episodes; ep++ {
		s := a.StateKey(a.sim.Reset())
		totalReward := 0.0

		for done := false; !done; {
			action := a.ChooseAction(s)

			next, reward, stepDone, err := a.sim.Step(a.weightsFor(action))
			if err != nil {
				return fmt.Errorf("episode %d: %w", ep, err)
			}
			done = stepDone
			totalReward += reward
			ns := a.StateKey(next)

			current := a.q.ensureEntry(s, action)
			a.q.ensure(ns)
			td := reward + a.cfg.Discount*a.q.MaxValue(ns) - current
			a.q.Set(s, action, current+a.cfg.LearningRate*td)

			s = ns
		}

		a.episodes++
		a.log.Debug().
			Int("episode", ep+1).
			Float64("total_reward", totalReward).
			Float64("final_value", a.sim.Value()).
			Int("states", a.q.Len()).
			Msg("Episode complete")
	}

	duration := timer.StopWithFields(map[string]interface{}{"episodes": episodes})
	a.log.Info().
		Int("episodes", episodes).
		Int("states", a.q.Len()).
		Int("entries", a.q.Entries()).
		Dur("duration", duration).
		Msg("Training complete")

	return nil
}

// Recommendation returns the policy's allocation for the terminal state of the path.
// No exploration is applied; an unknown terminal state yields a sampled allocation.
func (a *Agent) Recommendation() ([]float64, error) {
	a.sim.Reset()
	for i := 0; i < a.sim.Steps()-1; i++ {
		weights := a.sim.Weights()
		if a.cfg.RecommendationMode == ModePolicy {
			weights = a.weightsFor(a.greedyOrSample(a.StateKey(a.sim.State())))
		}
		if _, _, _, err := a.sim.Step(weights); err != nil {
			return nil, fmt.Errorf("replaying to terminal state: %w", err)
		}
	}

	return a.weightsFor(a.greedyOrSample(a.StateKey(a.sim.State()))), nil
}

// greedyOrSample returns the best known action of state, else a fresh sample
func (a *Agent) greedyOrSample(state Key) Key {
	if best, _, ok := a.q.Best(state); ok {
		return best
	}
	return a.ActionKey(a.sim.SampleRandomAction())
}

// Evaluate holds weights fixed for T-1 steps and returns the final cumulative value
func (a *Agent) Evaluate(weights []float64) (float64, error) {
	curve, err := a.EquityCurve(weights)
	if err != nil {
		return 0, err
	}
	return curve[len(curve)-1], nil
}

// EquityCurve holds weights fixed and returns the cumulative value after reset
// and after each of the T-1 steps (T points).
func (a *Agent) EquityCurve(weights []float64) ([]float64, error) {
	if len(weights) != a.sim.Assets() {
		return nil, fmt.Errorf("%w: got %d, expected %d", simulator.ErrWeightsLength, len(weights), a.sim.Assets())
	}

	a.sim.Reset()
	curve := make([]float64, 0, a.sim.Steps())
	curve = append(curve, a.sim.Value())
	for i := 0; i < a.sim.Steps()-1; i++ {
		if _, _, _, err := a.sim.Step(weights); err != nil {
			return nil, err
		}
		curve = append(curve, a.sim.Value())
	}
	return curve, nil
}

// weightsFor decodes an action key. In strict mode the rounded vector is
// renormalized so it passes simulator validation.
func (a *Agent) weightsFor(action Key) []float64 {
	w := action.Decode(a.cfg.Precision)
	if !a.cfg.StrictWeights {
		return w
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return simulator.EqualWeights(len(w))
	}
	floats.Scale(1/sum, w)
	return w
}

// QTable gives read access to the learned table
func (a *Agent) QTable() *QTable {
	return a.q
}

// Config returns the agent's hyperparameters
func (a *Agent) Config() Config {
	return a.cfg
}

// EpisodesTrained returns the number of completed training episodes
func (a *Agent) EpisodesTrained() int {
	return a.episodes
}

// Steps returns T, the length of the price path
func (a *Agent) Steps() int {
	return a.sim.Steps()
}

// Assets returns N, the number of instruments
func (a *Agent) Assets() int {
	return a.sim.Assets()
}
