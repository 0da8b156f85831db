package port

import (
	"context"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// JobRunner executes a Job and records it in the run ledger.
type JobRunner interface {
	// Run executes every step of job in order and returns the finished JobExecution.
	// The returned error is the failure that stopped the job, if any. A JobExecution is
	// returned even on failure unless it could not be saved in the first place.
	Run(ctx context.Context, job Job, params model.JobParameters) (*model.JobExecution, error)
}

// Job is a named, ordered list of steps.
type Job interface {
	// JobName returns the logical name of the job.
	JobName() string
	// Steps returns the steps in execution order.
	Steps() []Step
	// Listeners returns the listeners notified around the job.
	Listeners() []JobExecutionListener
}

// Step is a single unit of work executed within a job.
type Step interface {
	// Execute runs the step's business logic and finishes stepExecution.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   jobExecution: The current JobExecution instance.
	//   stepExecution: The StepExecution created and saved by the runner.
	//
	// Returns:
	//   error: An error if the step failed. The runner then fails the job.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
}

// Tasklet is the interface for a step that performs a single operation.
type Tasklet interface {
	// Execute executes the business logic of the Tasklet.
	// Read, write and filter counts are reported on stepExecution.
	// Returns an ExitStatus such as model.ExitStatusCompleted upon success.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
}

// JobParametersIncrementer derives the parameters of the next run from those of the previous one.
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}

// StepExecutionListener is an interface for handling step execution events.
type StepExecutionListener interface {
	// BeforeStep is called just before a step execution starts.
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	// AfterStep is called after a step execution completes (regardless of success or failure).
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is an interface for handling job execution events.
type JobExecutionListener interface {
	// BeforeJob is called just before a job execution starts.
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	// AfterJob is called after a job execution completes (regardless of success or failure).
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// Fx group names collecting jobs and listeners.
const (
	JobGroup          = "jobs"
	JobListenerGroup  = "job_listeners"
	StepListenerGroup = "step_listeners"
	IncrementerGroup  = "job_parameters_incrementers"
)

type contextKey string

// StepExecutionKey is the context key under which the running StepExecution is stored.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
