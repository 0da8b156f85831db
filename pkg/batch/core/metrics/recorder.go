package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics related to batch execution.
//
// This facilitates integration with different metrics backends (e.g., Prometheus, OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution: its duration and final status.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)

	// RecordStepEnd records the end of a StepExecution, including its final read, write
	// and filter counts.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordDuration records the execution time of a named operation.
	//
	// ctx: The context for the operation.
	// name: The name of the operation (e.g., "views_compute").
	// duration: The length of the duration to record.
	// tags: Additional attributes. Example: `{"month": "January"}`
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

// MultiRecorder fans every call out to several recorders.
type MultiRecorder []MetricRecorder

// NewMultiRecorder combines recorders, dropping nil entries.
// It returns a NoOpMetricRecorder when none remain.
func NewMultiRecorder(recorders ...MetricRecorder) MetricRecorder {
	multi := make(MultiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			multi = append(multi, r)
		}
	}
	switch len(multi) {
	case 0:
		return NewNoOpMetricRecorder()
	case 1:
		return multi[0]
	}
	return multi
}

func (m MultiRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	for _, r := range m {
		r.RecordJobStart(ctx, execution)
	}
}

func (m MultiRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	for _, r := range m {
		r.RecordJobEnd(ctx, execution)
	}
}

func (m MultiRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	for _, r := range m {
		r.RecordStepStart(ctx, execution)
	}
}

func (m MultiRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	for _, r := range m {
		r.RecordStepEnd(ctx, execution)
	}
}

func (m MultiRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range m {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

var _ MetricRecorder = (MultiRecorder)(nil)
