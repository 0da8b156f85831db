package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
)

func TestInMemoryJobRepository_LatestWithSteps(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	older := model.NewJobExecution("etl", nil)
	older.StartTime = time.Now().Add(-time.Hour)
	require.NoError(t, repo.SaveJobExecution(ctx, older))

	latest := model.NewJobExecution("etl", nil)
	require.NoError(t, repo.SaveJobExecution(ctx, latest))

	se := model.NewStepExecution(model.NewID(), latest, "loadTrips")
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	se.ReadCount = 42
	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("boom"))
	require.NoError(t, repo.UpdateStepExecution(ctx, se))

	found, err := repo.FindLatestJobExecution(ctx, "etl")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, found.ID)
	require.Len(t, found.StepExecutions, 1)
	assert.Equal(t, 42, found.StepExecutions[0].ReadCount)
	assert.Equal(t, model.BatchStatusFailed, found.StepExecutions[0].Status)
	assert.Same(t, found, found.StepExecutions[0].JobExecution)

	// Snapshots are not affected by later changes to the caller's object.
	se.ReadCount = 0
	again, err := repo.FindStepExecutions(ctx, latest.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, again[0].ReadCount)
}

func TestInMemoryJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	_, err := repo.FindLatestJobExecution(ctx, "etl")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	err = repo.UpdateJobExecution(ctx, model.NewJobExecution("etl", nil))
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	je := model.NewJobExecution("etl", nil)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.Error(t, repo.SaveJobExecution(ctx, je))
}
