package rebalancer

import (
	"context"
	"fmt"
	"time"

	"github.com/finplanner/rebalancer/internal/modules/historical"
	"github.com/finplanner/rebalancer/internal/modules/simulator"
	"github.com/finplanner/rebalancer/internal/utils"
	"github.com/rs/zerolog"
)

const (
	// DefaultStartDate is used when a request names no start date
	DefaultStartDate = "2020-01-01"
	// DefaultEpisodes is the training length used when a request names none
	DefaultEpisodes = 500
	// DefaultMaxEpisodes caps the training length of a single request
	DefaultMaxEpisodes = 5000
)

// PriceProvider supplies aligned price paths
type PriceProvider interface {
	FetchPrices(ctx context.Context, tickers []string, start, end string) (*historical.PricePath, error)
}

// RunStore persists completed training runs
type RunStore interface {
	Save(ctx context.Context, run *TrainingRun) error
}

// ServiceConfig configures the orchestration service
type ServiceConfig struct {
	Agent           Config
	DefaultEpisodes int
	MaxEpisodes     int
}

// DefaultServiceConfig returns the standard service settings
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Agent:           DefaultConfig(),
		DefaultEpisodes: DefaultEpisodes,
		MaxEpisodes:     DefaultMaxEpisodes,
	}
}

// Request names the instruments, window and training length of one run
type Request struct {
	Tickers  []string `json:"tickers"`
	Start    string   `json:"start"`
	End      string   `json:"end,omitempty"`
	Episodes int      `json:"episodes"`
}

// Performance holds the final cumulative values of both strategies
type Performance struct {
	Recommended float64 `json:"recommended"`
	Static      float64 `json:"static"`
}

// EquityCurves holds the cumulative value series of both strategies
type EquityCurves struct {
	Recommended []float64 `json:"recommended"`
	Static      []float64 `json:"static"`
}

// Metrics summarizes both equity curves
type Metrics struct {
	Recommended CurveMetrics `json:"recommended"`
	Static      CurveMetrics `json:"static"`
}

// Result is the outcome of one BuildAndTrain call
type Result struct {
	RunID              string       `json:"run_id,omitempty"`
	Dates              []string     `json:"dates"`
	Tickers            []string     `json:"tickers"`
	RecommendedWeights []float64    `json:"recommended_weights"`
	StaticWeights      []float64    `json:"static_weights"`
	Performance        Performance  `json:"performance"`
	EquityCurve        EquityCurves `json:"equity_curve"`
	Metrics            Metrics      `json:"metrics"`
	Episodes           int          `json:"episodes"`
	Seed               uint64       `json:"seed"`
	QStates            int          `json:"q_states"`
}

// Service fetches price history, trains a fresh agent per request and compares
// its recommendation against the equal-weight benchmark.
type Service struct {
	provider PriceProvider
	runs     RunStore
	cfg      ServiceConfig
	seed     func() uint64
	log      zerolog.Logger
}

// NewService creates the orchestration service. runs may be nil to skip persistence.
func NewService(provider PriceProvider, runs RunStore, cfg ServiceConfig, log zerolog.Logger) *Service {
	if cfg.DefaultEpisodes <= 0 {
		cfg.DefaultEpisodes = DefaultEpisodes
	}
	if cfg.MaxEpisodes <= 0 {
		cfg.MaxEpisodes = DefaultMaxEpisodes
	}
	return &Service{
		provider: provider,
		runs:     runs,
		cfg:      cfg,
		seed:     func() uint64 { return uint64(time.Now().UnixNano()) },
		log:      log.With().Str("service", "rebalancer").Logger(),
	}
}

// DefaultEpisodes returns the training length applied when callers omit one
func (s *Service) DefaultEpisodes() int {
	return s.cfg.DefaultEpisodes
}

// BuildAndTrain runs the full pipeline for req. Failures are returned as *Error.
func (s *Service) BuildAndTrain(ctx context.Context, req Request) (*Result, error) {
	result, err := s.buildAndTrain(ctx, req)
	return result, categorize(err)
}

func (s *Service) buildAndTrain(ctx context.Context, req Request) (*Result, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	path, err := s.provider.FetchPrices(ctx, req.Tickers, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if path == nil || path.Len() == 0 {
		return nil, fmt.Errorf("%w: %v", historical.ErrNoPriceData, req.Tickers)
	}
	if path.Len() < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientHistory, path.Len())
	}

	agentCfg := s.cfg.Agent
	if agentCfg.Seed == 0 {
		agentCfg.Seed = s.seed()
	}

	// Each request owns its simulator and table
	agent, err := NewAgent(path.Prices, agentCfg, s.log)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Strs("tickers", req.Tickers).
		Str("start", req.Start).
		Str("end", req.End).
		Int("time_steps", path.Len()).
		Int("episodes", req.Episodes).
		Uint64("seed", agentCfg.Seed).
		Msg("Training rebalancer")

	if err := agent.Train(req.Episodes); err != nil {
		return nil, err
	}

	recommended, err := agent.Recommendation()
	if err != nil {
		return nil, err
	}
	static := simulator.EqualWeights(len(path.Tickers))

	recCurve, err := agent.EquityCurve(recommended)
	if err != nil {
		return nil, err
	}
	staticCurve, err := agent.EquityCurve(static)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Dates:              path.Dates,
		Tickers:            path.Tickers,
		RecommendedWeights: recommended,
		StaticWeights:      static,
		Performance: Performance{
			Recommended: recCurve[len(recCurve)-1],
			Static:      staticCurve[len(staticCurve)-1],
		},
		EquityCurve: EquityCurves{Recommended: recCurve, Static: staticCurve},
		Metrics: Metrics{
			Recommended: ComputeCurveMetrics(recCurve),
			Static:      ComputeCurveMetrics(staticCurve),
		},
		Episodes: req.Episodes,
		Seed:     agentCfg.Seed,
		QStates:  agent.QTable().Len(),
	}

	s.log.Info().
		Floats64("recommended_weights", recommended).
		Float64("recommended_performance", result.Performance.Recommended).
		Float64("static_performance", result.Performance.Static).
		Int("q_states", result.QStates).
		Msg("Rebalancer trained")

	s.persist(ctx, req, agent, result)
	return result, nil
}

// normalize validates req and fills defaults
func (s *Service) normalize(req Request) (Request, error) {
	req.Tickers = utils.NormalizeTickers(req.Tickers...)
	if len(req.Tickers) == 0 {
		return req, ErrNoTickers
	}

	if req.Start == "" {
		req.Start = DefaultStartDate
	}
	start, err := utils.ParseDate(req.Start)
	if err != nil {
		return req, fmt.Errorf("%w: start: %v", ErrInvalidDate, err)
	}
	if req.End != "" {
		end, err := utils.ParseDate(req.End)
		if err != nil {
			return req, fmt.Errorf("%w: end: %v", ErrInvalidDate, err)
		}
		if end.Before(start) {
			return req, fmt.Errorf("%w: end %s is before start %s", ErrInvalidDate, req.End, req.Start)
		}
	}

	if req.Episodes < 1 || req.Episodes > s.cfg.MaxEpisodes {
		return req, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidEpisodes, req.Episodes, s.cfg.MaxEpisodes)
	}
	return req, nil
}

// persist stores the run. Failures are logged and never fail the request.
func (s *Service) persist(ctx context.Context, req Request, agent *Agent, result *Result) {
	if s.runs == nil {
		return
	}

	policy, err := EncodeSnapshot(agent.Snapshot())
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to encode policy, storing run without it")
	}

	run := &TrainingRun{
		Tickers:                result.Tickers,
		StartDate:              req.Start,
		EndDate:                req.End,
		Episodes:               result.Episodes,
		Seed:                   result.Seed,
		TimeSteps:              len(result.Dates),
		RecommendedWeights:     result.RecommendedWeights,
		StaticWeights:          result.StaticWeights,
		RecommendedPerformance: result.Performance.Recommended,
		StaticPerformance:      result.Performance.Static,
		QStates:                result.QStates,
		Policy:                 policy,
	}
	if err := s.runs.Save(ctx, run); err != nil {
		s.log.Error().Err(err).Strs("tickers", result.Tickers).Msg("Failed to persist training run")
		return
	}
	result.RunID = run.ID
}
