package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/fx"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// SimpleJobLauncher implements JobLauncher for local execution of registered jobs.
type SimpleJobLauncher struct {
	jobs      map[string]port.Job
	jobRunner port.JobRunner
}

// SimpleJobLauncherParams defines the dependencies of NewSimpleJobLauncher.
type SimpleJobLauncherParams struct {
	fx.In
	Jobs      []port.Job `group:"jobs"`
	JobRunner port.JobRunner
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher. Jobs are keyed by JobName; a later job with
// the same name replaces an earlier one.
func NewSimpleJobLauncher(p SimpleJobLauncherParams) *SimpleJobLauncher {
	jobs := make(map[string]port.Job, len(p.Jobs))
	for _, j := range p.Jobs {
		if _, dup := jobs[j.JobName()]; dup {
			logger.Warnf("JobLauncher: job '%s' registered more than once; the last one wins.", j.JobName())
		}
		jobs[j.JobName()] = j
	}
	return &SimpleJobLauncher{jobs: jobs, jobRunner: p.JobRunner}
}

// Launch launches a job execution and waits for it to finish.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	job, ok := l.jobs[jobName]
	if !ok {
		return nil, exception.NewConfigError("job_launcher", fmt.Sprintf("job '%s' is not registered", jobName), nil)
	}
	logger.Infof("Launching Job '%s'. Parameters: %+v", jobName, jobParameters)
	return l.jobRunner.Run(ctx, job, jobParameters)
}

// JobNames returns the registered job names in sorted order.
func (l *SimpleJobLauncher) JobNames() []string {
	names := make([]string, 0, len(l.jobs))
	for name := range l.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
