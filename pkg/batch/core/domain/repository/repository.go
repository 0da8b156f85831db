package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// ErrJobExecutionNotFound is the error returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// JobExecution persists job executions.
type JobExecution interface {
	// SaveJobExecution persists a new JobExecution.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// UpdateJobExecution updates the state of an existing JobExecution.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// FindLatestJobExecution returns the most recently started execution of jobName,
	// with its StepExecutions loaded. Returns ErrJobExecutionNotFound if the job never ran.
	FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error)
}

// StepExecution persists step executions.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// FindStepExecutions returns the steps of a job execution in start order.
	FindStepExecutions(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error)
}

// JobRepository is the run ledger: it records every job execution and its steps.
type JobRepository interface {
	JobExecution
	StepExecution
}
