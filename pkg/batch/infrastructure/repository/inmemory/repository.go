// Package inmemory provides an in-memory implementation of the JobRepository interface.
// It is used where the run ledger must not touch a database, such as runner and step tests.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository is an in-memory implementation of the JobRepository interface.
// Executions are stored as snapshots, so later changes to the caller's objects are not visible
// until they are updated.
type InMemoryJobRepository struct {
	jobExecutions  map[string]model.JobExecution
	stepExecutions map[string]model.StepExecution
	mu             sync.RWMutex
}

// NewInMemoryJobRepository creates and initializes a new instance of InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]model.JobExecution),
		stepExecutions: make(map[string]model.StepExecution),
	}
}

// SaveJobExecution persists a new JobExecution.
// It returns an error if a JobExecution with the same ID already exists.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJob(jobExecution)
	return nil
}

// UpdateJobExecution updates an existing JobExecution.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("JobExecution with ID %s not found for update: %w", jobExecution.ID, repository.ErrJobExecutionNotFound)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJob(jobExecution)
	return nil
}

// FindLatestJobExecution returns the most recently started execution of jobName with its steps.
func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobName != jobName {
			continue
		}
		if latest == nil || je.StartTime.After(latest.StartTime) {
			found := je
			latest = &found
		}
	}
	if latest == nil {
		return nil, repository.ErrJobExecutionNotFound
	}

	latest.StepExecutions = r.stepsOf(latest.ID)
	for _, se := range latest.StepExecutions {
		se.JobExecution = latest
	}
	return latest, nil
}

// SaveStepExecution persists a new StepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = snapshotStep(stepExecution)
	return nil
}

// UpdateStepExecution updates an existing StepExecution.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return fmt.Errorf("StepExecution with ID %s not found for update", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = snapshotStep(stepExecution)
	return nil
}

// FindStepExecutions returns the steps of a JobExecution ordered by start time.
func (r *InMemoryJobRepository) FindStepExecutions(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stepsOf(jobExecutionID), nil
}

func (r *InMemoryJobRepository) stepsOf(jobExecutionID string) []*model.StepExecution {
	steps := make([]*model.StepExecution, 0)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == jobExecutionID {
			found := se
			steps = append(steps, &found)
		}
	}
	// Sort StepExecutions by StartTime for consistency
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StartTime.Before(steps[j].StartTime)
	})
	return steps
}

func snapshotJob(je *model.JobExecution) model.JobExecution {
	s := *je
	s.StepExecutions = nil
	s.Failures = append(model.FailureList(nil), je.Failures...)
	return s
}

func snapshotStep(se *model.StepExecution) model.StepExecution {
	s := *se
	s.JobExecution = nil
	s.Failures = append(model.FailureList(nil), se.Failures...)
	return s
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)
