package runner

import (
	"context"
	"fmt"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
	exception "github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// SimpleJobRunner is an implementation of port.JobRunner that executes the steps of a job one after
// another and records every execution in the JobRepository.
type SimpleJobRunner struct {
	jobRepository repository.JobRepository
	tracer        metrics.Tracer
}

// NewSimpleJobRunner creates an instance of SimpleJobRunner.
func NewSimpleJobRunner(repo repository.JobRepository, tracer metrics.Tracer) *SimpleJobRunner {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJobRunner{
		jobRepository: repo,
		tracer:        tracer,
	}
}

// Run executes the job. Steps run in order; the first failing step fails the job and the remaining
// steps are skipped. A cancelled context stops the job before the next step starts.
func (r *SimpleJobRunner) Run(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error) {
	jobExecution := model.NewJobExecution(job.JobName(), params)
	if err := r.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewPersistenceError("JobRunner", fmt.Sprintf("failed to save JobExecution for job '%s'", job.JobName()), err)
	}

	logger.Infof("Starting Job '%s' (Execution ID: %s).", job.JobName(), jobExecution.ID)

	ctx, finishSpan := r.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	jobExecution.MarkAsStarted()
	for _, l := range job.Listeners() {
		l.BeforeJob(ctx, jobExecution)
	}
	if err := r.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: Failed to update JobExecution (ID: %s) status to STARTED: %v", jobExecution.ID, err)
	}

	runErr := r.runSteps(ctx, job, jobExecution)

	if !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsCompleted()
	}

	for _, l := range job.Listeners() {
		l.AfterJob(ctx, jobExecution)
	}

	// Final persistence of JobExecution. Ledger failures are logged, not added to the job's failures.
	// The final state is written even when ctx has been cancelled.
	if err := r.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); err != nil {
		logger.Errorf("JobRunner: Failed to update final JobExecution (ID: %s) state: %v", jobExecution.ID, err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
		job.JobName(), jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	return jobExecution, runErr
}

func (r *SimpleJobRunner) runSteps(ctx context.Context, job port.Job, jobExecution *model.JobExecution) error {
	for _, step := range job.Steps() {
		select {
		case <-ctx.Done():
			logger.Warnf("Job '%s' stopped before step '%s': %v", job.JobName(), step.StepName(), ctx.Err())
			jobExecution.MarkAsStopped()
			return ctx.Err()
		default:
		}

		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, step.StepName())
		jobExecution.AddStepExecution(stepExecution)
		jobExecution.CurrentStepName = step.StepName()

		if err := r.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			wrapped := exception.NewPersistenceError("JobRunner", fmt.Sprintf("failed to save StepExecution for step '%s'", step.StepName()), err)
			jobExecution.MarkAsFailed(wrapped)
			return wrapped
		}
		if err := r.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
			logger.Warnf("JobRunner: Failed to record current step '%s': %v", step.StepName(), err)
		}

		if err := step.Execute(ctx, jobExecution, stepExecution); err != nil {
			logger.Errorf("Step '%s' failed: %v", step.StepName(), err)
			jobExecution.MarkAsFailed(err)
			return err
		}
	}
	return nil
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)
