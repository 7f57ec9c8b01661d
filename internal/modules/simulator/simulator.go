// Package simulator provides a deterministic market environment that replays a
// fixed historical price path for a portfolio of N instruments.
//
// At each step the caller supplies a new weight vector. The simulator realizes
// the return of the weights that were in effect before the call, charges a
// turnover cost proportional to the L1 distance between the old and the new
// weights, and advances one time step. The run ends once every row of the
// price path has been consumed.
package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
)

// DefaultTurnoverCost is the cost charged per unit of L1 turnover
const DefaultTurnoverCost = 0.001

// weightSumTolerance bounds how far a strict-mode weight vector may drift from 1
const weightSumTolerance = 1e-6

var (
	// ErrInvalidPrices is returned when the price path is empty, ragged or holds non-positive values
	ErrInvalidPrices = errors.New("invalid price path")
	// ErrWeightsLength is returned when a weight vector does not have one entry per instrument
	ErrWeightsLength = errors.New("weight vector length does not match instrument count")
	// ErrWeightsInvalid is returned in strict mode for negative or non-normalized weights
	ErrWeightsInvalid = errors.New("weight vector must be non-negative and sum to 1")
	// ErrSimulationExhausted is returned by Step once the run is done
	ErrSimulationExhausted = errors.New("simulation exhausted")
)

// Options configures a Simulator
type Options struct {
	// TurnoverCost is charged per unit of L1 turnover. Zero means DefaultTurnoverCost;
	// use a negative value to disable the penalty entirely.
	TurnoverCost float64
	// Source drives exploration sampling. A fixed-seed PCG source is used when nil.
	Source rand.Source
	// StrictWeights makes Step reject negative or non-normalized weight vectors.
	StrictWeights bool
}

// State is the observable environment state: the weights currently held and the
// most recent per-instrument returns.
type State struct {
	Weights []float64 `json:"weights"`
	Returns []float64 `json:"returns"`
}

// Vector returns the 2N-length concatenation [weights..., returns...]
func (s State) Vector() []float64 {
	v := make([]float64, 0, len(s.Weights)+len(s.Returns))
	v = append(v, s.Weights...)
	return append(v, s.Returns...)
}

// Simulator replays a price path. It is not safe for concurrent use.
type Simulator struct {
	prices       [][]float64
	steps        int // T
	assets       int // N
	turnoverCost float64
	strict       bool
	dirichlet    *distmv.Dirichlet

	t       int
	weights []float64
	value   float64
}

// New creates a simulator over a T x N price matrix. The matrix is copied.
func New(prices [][]float64, opts Options) (*Simulator, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no time steps", ErrInvalidPrices)
	}
	n := len(prices[0])
	if n == 0 {
		return nil, fmt.Errorf("%w: no instruments", ErrInvalidPrices)
	}

	owned := make([][]float64, len(prices))
	for t, row := range prices {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d prices, expected %d", ErrInvalidPrices, t, len(row), n)
		}
		for i, p := range row {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return nil, fmt.Errorf("%w: price at row %d column %d is %v", ErrInvalidPrices, t, i, p)
			}
		}
		owned[t] = append([]float64(nil), row...)
	}

	cost := opts.TurnoverCost
	switch {
	case cost == 0:
		cost = DefaultTurnoverCost
	case cost < 0:
		cost = 0
	}

	src := opts.Source
	if src == nil {
		src = rand.NewPCG(1, 2)
	}

	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = 1
	}

	s := &Simulator{
		prices:       owned,
		steps:        len(owned),
		assets:       n,
		turnoverCost: cost,
		strict:       opts.StrictWeights,
		dirichlet:    distmv.NewDirichlet(alpha, src),
	}
	s.Reset()
	return s, nil
}

// Reset restarts the run: t=0, equal weights, cumulative value 1.0
func (s *Simulator) Reset() State {
	s.t = 0
	s.value = 1.0
	s.weights = EqualWeights(s.assets)
	return s.State()
}

// State returns a snapshot of the current environment state
func (s *Simulator) State() State {
	return State{
		Weights: append([]float64(nil), s.weights...),
		Returns: s.returnsAt(s.t),
	}
}

// Step holds the current weights for one period, then rebalances to newWeights.
// It returns the next state, the reward (realized return minus turnover cost)
// and whether the run is done.
//
// Outside strict mode newWeights is not validated beyond its length: vectors
// that are negative or do not sum to 1 distort the reward.
func (s *Simulator) Step(newWeights []float64) (State, float64, bool, error) {
	if s.Done() {
		return State{}, 0, true, ErrSimulationExhausted
	}
	if len(newWeights) != s.assets {
		return State{}, 0, false, fmt.Errorf("%w: got %d, expected %d", ErrWeightsLength, len(newWeights), s.assets)
	}
	if s.strict {
		if err := ValidateWeights(newWeights); err != nil {
			return State{}, 0, false, err
		}
	}

	portfolioReturn := floats.Dot(s.weights, s.returnsAt(s.t))
	s.value *= 1 + portfolioReturn

	turnover := floats.Distance(newWeights, s.weights, 1)
	reward := portfolioReturn - turnover*s.turnoverCost

	s.weights = append([]float64(nil), newWeights...)
	s.t++

	return s.State(), reward, s.Done(), nil
}

// SampleRandomAction draws a weight vector uniformly from the simplex
func (s *Simulator) SampleRandomAction() []float64 {
	return s.dirichlet.Rand(nil)
}

// Done reports whether every time step has been consumed
func (s *Simulator) Done() bool {
	return s.t >= s.steps
}

// Weights returns a copy of the weights currently held
func (s *Simulator) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

// Value returns the cumulative portfolio value (starts at 1.0)
func (s *Simulator) Value() float64 {
	return s.value
}

// Time returns the current time index
func (s *Simulator) Time() int {
	return s.t
}

// Steps returns T, the number of rows in the price path
func (s *Simulator) Steps() int {
	return s.steps
}

// Assets returns N, the number of instruments
func (s *Simulator) Assets() int {
	return s.assets
}

// TurnoverCost returns the configured turnover cost rate
func (s *Simulator) TurnoverCost() float64 {
	return s.turnoverCost
}

// returnsAt computes per-instrument returns at min(t, T-1); zeros at index 0
func (s *Simulator) returnsAt(t int) []float64 {
	idx := t
	if idx > s.steps-1 {
		idx = s.steps - 1
	}

	ret := make([]float64, s.assets)
	if idx == 0 {
		return ret
	}
	for i := range ret {
		ret[i] = s.prices[idx][i]/s.prices[idx-1][i] - 1.0
	}
	return ret
}

// EqualWeights returns the 1/N allocation
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// ValidateWeights checks a vector is a valid long-only allocation
func ValidateWeights(w []float64) error {
	for i, x := range w {
		if math.IsNaN(x) || x < 0 {
			return fmt.Errorf("%w: component %d is %v", ErrWeightsInvalid, i, x)
		}
	}
	if sum := floats.Sum(w); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum is %v", ErrWeightsInvalid, sum)
	}
	return nil
}
