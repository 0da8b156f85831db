package tasklet

import (
	"context"
	"time"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
	exception "github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// TaskletStep is an implementation of port.Step that runs a single Tasklet.
type TaskletStep struct {
	name                   string
	tasklet                port.Tasklet
	jobRepository          repository.JobRepository
	stepExecutionListeners []port.StepExecutionListener
	tracer                 metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep instance.
func NewTaskletStep(
	name string,
	tasklet port.Tasklet,
	jobRepository repository.JobRepository,
	stepExecutionListeners []port.StepExecutionListener,
	tracer metrics.Tracer,
) *TaskletStep {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &TaskletStep{
		name:                   name,
		tasklet:                tasklet,
		jobRepository:          jobRepository,
		stepExecutionListeners: stepExecutionListeners,
		tracer:                 tracer,
	}
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.name
}

// notifyBeforeStep calls the BeforeStep method of registered StepExecutionListeners.
func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

// notifyAfterStep calls the AfterStep method of registered StepExecutionListeners.
func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// Execute runs the Tasklet logic and persists the finished StepExecution.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	logger.Infof("TaskletStep '%s' executing.", s.name)

	// 1. Update StepExecution status to STARTED
	stepExecution.MarkAsStarted()
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewPersistenceError(s.name, "failed to update StepExecution status to STARTED", err)
	}

	ctx, finishSpan := s.tracer.StartStepSpan(port.GetContextWithStepExecution(ctx, stepExecution), stepExecution)
	defer finishSpan()

	// 2. Listener notification (BeforeStep)
	s.notifyBeforeStep(ctx, stepExecution)

	// 3. Execute Tasklet business logic
	exitStatus, err := s.tasklet.Execute(ctx, stepExecution)

	// 4. Update StepExecution status
	if err != nil {
		s.tracer.RecordError(ctx, s.name, err)
		stepExecution.MarkAsFailed(err)
	} else {
		stepExecution.Status = model.BatchStatusCompleted
		stepExecution.ExitStatus = exitStatus
		now := time.Now()
		stepExecution.EndTime = &now
		stepExecution.LastUpdated = now
	}

	// 5. Listener notification (AfterStep)
	s.notifyAfterStep(ctx, stepExecution)

	// 6. Persistence. The final state is written even when ctx has been cancelled.
	if updateErr := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); updateErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to update final StepExecution state: %v", s.name, updateErr)
		if err == nil {
			err = updateErr
		}
	}

	logger.Infof("TaskletStep '%s' finished. ExitStatus: %s", s.name, stepExecution.ExitStatus)
	return err
}

// Verify that TaskletStep implements the port.Step interface.
var _ port.Step = (*TaskletStep)(nil)
