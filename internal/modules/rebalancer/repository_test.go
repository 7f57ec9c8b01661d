package rebalancer

import (
	"context"
	"testing"
	"time"

	testingpkg "github.com/finplanner/rebalancer/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *RunRepository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "rebalancer")
	t.Cleanup(cleanup)
	return NewRunRepository(db.Conn(), zerolog.Nop())
}

func sampleRun(created time.Time) *TrainingRun {
	return &TrainingRun{
		CreatedAt:              created,
		Tickers:                []string{"SPY", "TLT"},
		StartDate:              "2024-01-01",
		Episodes:               100,
		Seed:                   1<<63 + 5,
		TimeSteps:              250,
		RecommendedWeights:     []float64{0.7, 0.3},
		StaticWeights:          []float64{0.5, 0.5},
		RecommendedPerformance: 1.12,
		StaticPerformance:      1.05,
		QStates:                42,
	}
}

func TestRunRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	snap := PolicySnapshot{Precision: 3, Assets: 2, States: []StateSnapshot{{
		State:   []int64{500, 500, 0, 0},
		Actions: []ActionSnapshot{{Action: []int64{700, 300}, Value: 0.12}},
	}}}
	policy, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	run := sampleRun(time.Time{})
	run.EndDate = "2024-12-31"
	run.Policy = policy
	require.NoError(t, repo.Save(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Tickers, got.Tickers)
	assert.Equal(t, "2024-12-31", got.EndDate)
	assert.Equal(t, run.Seed, got.Seed, "seeds above MaxInt64 survive the int64 column")
	assert.Equal(t, run.RecommendedWeights, got.RecommendedWeights)
	assert.Equal(t, run.StaticWeights, got.StaticWeights)
	assert.Equal(t, 1.12, got.RecommendedPerformance)
	assert.Equal(t, 42, got.QStates)
	assert.Equal(t, run.CreatedAt.Unix(), got.CreatedAt.Unix())

	loaded, err := repo.LoadPolicy(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}

func TestRunRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = repo.LoadPolicy(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	// A run stored without a policy has nothing to load
	run := sampleRun(time.Now())
	require.NoError(t, repo.Save(ctx, run))
	_, err = repo.LoadPolicy(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		run := sampleRun(base.Add(time.Duration(i) * time.Hour))
		run.Policy = []byte{0x80}
		require.NoError(t, repo.Save(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	for _, r := range runs {
		assert.Nil(t, r.Policy, "listing omits policy blobs")
		assert.Equal(t, "", r.EndDate)
	}

	runs, err = repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunRepository_ListEmpty(t *testing.T) {
	repo := newTestRepository(t)

	runs, err := repo.List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
