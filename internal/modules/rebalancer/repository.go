package rebalancer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultRunListLimit bounds List when no limit is given
const DefaultRunListLimit = 20

// TrainingRun is a stored BuildAndTrain outcome
type TrainingRun struct {
	ID                     string    `json:"id"`
	CreatedAt              time.Time `json:"created_at"`
	Tickers                []string  `json:"tickers"`
	StartDate              string    `json:"start_date"`
	EndDate                string    `json:"end_date,omitempty"`
	Episodes               int       `json:"episodes"`
	Seed                   uint64    `json:"seed"`
	TimeSteps              int       `json:"time_steps"`
	RecommendedWeights     []float64 `json:"recommended_weights"`
	StaticWeights          []float64 `json:"static_weights"`
	RecommendedPerformance float64   `json:"recommended_performance"`
	StaticPerformance      float64   `json:"static_performance"`
	QStates                int       `json:"q_states"`
	Policy                 []byte    `json:"-"`
}

// RunRepository stores training runs in rebalancer.db
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "training_runs").Logger(),
	}
}

// Save inserts run, assigning an ID and creation time when unset
func (r *RunRepository) Save(ctx context.Context, run *TrainingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tickers, err := json.Marshal(run.Tickers)
	if err != nil {
		return fmt.Errorf("failed to marshal tickers: %w", err)
	}
	recommended, err := json.Marshal(run.RecommendedWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended weights: %w", err)
	}
	static, err := json.Marshal(run.StaticWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal static weights: %w", err)
	}

	var endDate sql.NullString
	if run.EndDate != "" {
		endDate = sql.NullString{String: run.EndDate, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO training_runs
		(id, created_at, tickers, start_date, end_date, episodes, seed, time_steps,
		 recommended_weights, static_weights, recommended_performance, static_performance,
		 q_states, policy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.CreatedAt.Unix(), string(tickers), run.StartDate, endDate,
		run.Episodes, int64(run.Seed), run.TimeSteps,
		string(recommended), string(static), run.RecommendedPerformance, run.StaticPerformance,
		run.QStates, run.Policy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert training run: %w", err)
	}

	r.log.Debug().Str("run_id", run.ID).Msg("Saved training run")
	return nil
}

// Get returns a run with its policy blob, or ErrRunNotFound
func (r *RunRepository) Get(ctx context.Context, id string) (*TrainingRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, tickers, start_date, end_date, episodes, seed, time_steps,
		       recommended_weights, static_weights, recommended_performance, static_performance,
		       q_states, policy
		FROM training_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first, without policy blobs
func (r *RunRepository) List(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, tickers, start_date, end_date, episodes, seed, time_steps,
		       recommended_weights, static_weights, recommended_performance, static_performance,
		       q_states
		FROM training_runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training runs: %w", err)
	}
	return runs, nil
}

// LoadPolicy decodes the stored policy snapshot of a run
func (r *RunRepository) LoadPolicy(ctx context.Context, id string) (PolicySnapshot, error) {
	run, err := r.Get(ctx, id)
	if err != nil {
		return PolicySnapshot{}, err
	}
	if len(run.Policy) == 0 {
		return PolicySnapshot{}, fmt.Errorf("%w: run %s has no stored policy", ErrRunNotFound, id)
	}
	return DecodeSnapshot(run.Policy)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner, withPolicy bool) (*TrainingRun, error) {
	var run TrainingRun
	var createdAt, seed int64
	var endDate sql.NullString
	var tickers, recommended, static string
	dest := []interface{}{
		&run.ID, &createdAt, &tickers, &run.StartDate, &endDate, &run.Episodes, &seed, &run.TimeSteps,
		&recommended, &static, &run.RecommendedPerformance, &run.StaticPerformance, &run.QStates,
	}
	if withPolicy {
		dest = append(dest, &run.Policy)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan training run: %w", err)
	}

	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.Seed = uint64(seed)
	run.EndDate = endDate.String

	if err := json.Unmarshal([]byte(tickers), &run.Tickers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tickers: %w", err)
	}
	if err := json.Unmarshal([]byte(recommended), &run.RecommendedWeights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommended weights: %w", err)
	}
	if err := json.Unmarshal([]byte(static), &run.StaticWeights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal static weights: %w", err)
	}
	return &run, nil
}
