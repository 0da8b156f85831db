package usecase

import (
	"context"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// JobLauncher is an interface for launching a Job with JobParameters.
type JobLauncher interface {
	// Launch runs the job registered under jobName and returns its finished JobExecution.
	// The error is either a launch failure (unknown job, ledger unavailable) or the failure that
	// stopped the job; the JobExecution is non-nil in the latter case.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobExplorer is an interface for querying the run ledger.
type JobExplorer interface {
	// GetLastJobExecution retrieves the latest JobExecution of jobName with its steps.
	GetLastJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error)

	// GetStepExecutions retrieves the steps of a JobExecution in start order.
	GetStepExecutions(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error)
}
