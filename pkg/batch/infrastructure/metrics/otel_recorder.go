package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
)

// OpenTelemetryRecorder is a metrics.MetricRecorder that reports through an OpenTelemetry MeterProvider.
type OpenTelemetryRecorder struct {
	jobRuns           metric.Int64Counter
	jobDuration       metric.Float64Histogram
	stepRuns          metric.Int64Counter
	stepDuration      metric.Float64Histogram
	stepItems         metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewOpenTelemetryRecorder creates the instruments on mp.
func NewOpenTelemetryRecorder(mp metric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := mp.Meter(instrumentationName)
	r := &OpenTelemetryRecorder{}
	var err error

	if r.jobRuns, err = meter.Int64Counter("batch.job.runs",
		metric.WithDescription("Finished job executions by final status.")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration",
		metric.WithDescription("Duration of job executions."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.stepRuns, err = meter.Int64Counter("batch.step.runs",
		metric.WithDescription("Finished step executions by final status.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("batch.step.duration",
		metric.WithDescription("Duration of step executions."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.stepItems, err = meter.Int64Counter("batch.step.items",
		metric.WithDescription("Rows read, written or filtered by step.")); err != nil {
		return nil, err
	}
	if r.operationDuration, err = meter.Float64Histogram("taxiweather.operation.duration",
		metric.WithDescription("Duration of named operations."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OpenTelemetryRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OpenTelemetryRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.Duration().Seconds(), attrs)
	}
}

func (r *OpenTelemetryRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
}

func (r *OpenTelemetryRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	jobName := stepJobName(execution)
	attrs := metric.WithAttributes(
		attribute.String("job_name", jobName),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	)
	r.stepRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.stepDuration.Record(ctx, execution.Duration().Seconds(), attrs)
	}

	for kind, n := range map[string]int{
		"read":   execution.ReadCount,
		"write":  execution.WriteCount,
		"filter": execution.FilterCount,
	} {
		r.stepItems.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("job_name", jobName),
			attribute.String("step_name", execution.StepName),
			attribute.String("kind", kind),
		))
	}
}

func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)
