package runner

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	repository "github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
)

// SimpleJobRunnerParams defines dependencies for SimpleJobRunner.
type SimpleJobRunnerParams struct {
	fx.In
	JobRepository repository.JobRepository
	Tracer        metrics.Tracer
}

// NewJobRunner provides the concrete JobRunner implementation (SimpleJobRunner).
func NewJobRunner(p SimpleJobRunnerParams) port.JobRunner {
	return NewSimpleJobRunner(p.JobRepository, p.Tracer)
}

// Module provides the JobRunner implementation.
var Module = fx.Options(
	fx.Provide(NewJobRunner),
)
