package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	job "github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// SimpleJobExplorer is a simple implementation of the JobExplorer interface.
// It queries batch metadata using a JobRepository.
type SimpleJobExplorer struct {
	jobRepository job.JobRepository
}

// Verify that SimpleJobExplorer implements the JobExplorer interface.
var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new instance of SimpleJobExplorer.
func NewSimpleJobExplorer(jobRepository job.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{
		jobRepository: jobRepository,
	}
}

// GetLastJobExecution retrieves the latest JobExecution for jobName.
// job.ErrJobExecutionNotFound is returned unchanged so callers can tell "never ran" from a failure.
func (e *SimpleJobExplorer) GetLastJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	logger.Debugf("JobExplorer: GetLastJobExecution called. Job: %s", jobName)
	return e.jobRepository.FindLatestJobExecution(ctx, jobName)
}

// GetStepExecutions retrieves the StepExecutions of a JobExecution.
func (e *SimpleJobExplorer) GetStepExecutions(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	steps, err := e.jobRepository.FindStepExecutions(ctx, jobExecutionID)
	if err != nil {
		return nil, exception.NewPersistenceError("job_explorer", fmt.Sprintf("failed to retrieve StepExecutions of JobExecution (ID: %s)", jobExecutionID), err)
	}
	logger.Debugf("Retrieved %d StepExecutions of JobExecution (ID: %s).", len(steps), jobExecutionID)
	return steps, nil
}
