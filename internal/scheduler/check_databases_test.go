package scheduler

import (
	"testing"

	"github.com/finplanner/rebalancer/internal/database"
	testingpkg "github.com/finplanner/rebalancer/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCheckDatabasesJob(t *testing.T) {
	history, cleanupHistory := testingpkg.NewTestDB(t, "history")
	defer cleanupHistory()
	runs, cleanupRuns := testingpkg.NewTestDB(t, "rebalancer")
	defer cleanupRuns()

	job := NewCheckDatabasesJob(history, nil, runs)
	job.SetLogger(zerolog.Nop())

	assert.Equal(t, "check_databases", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckDatabasesJob_ClosedDatabaseFails(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "history")
	defer cleanup()
	_ = db.Conn().Close()

	err := NewCheckDatabasesJob(db).Run()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "history")
}

func TestCheckWALCheckpointsJob(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "rebalancer")
	defer cleanup()

	job := NewCheckWALCheckpointsJob(db, nil)
	job.SetLogger(zerolog.Nop())

	assert.Equal(t, "check_wal_checkpoints", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_NoDatabases(t *testing.T) {
	job := NewCheckWALCheckpointsJob()
	assert.NoError(t, job.Run())

	job = NewCheckWALCheckpointsJob([]*database.DB{nil, nil}...)
	assert.NoError(t, job.Run())
}
