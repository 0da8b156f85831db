package metrics

import (
	"context"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing.
// This interface provides functionality to integrate with tracing systems like OpenTelemetry,
// enabling visualization of job and step execution flows.
type Tracer interface {
	// StartJobSpan starts a Span for a JobExecution.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	//          The end function reads the execution's final status, so call it after the job finishes.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())

	// StartStepSpan starts a Span for a StepExecution, as a child of the span in ctx.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: The name of the component where the error occurred (e.g., "loader", "persist").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// attributes: Example: `map[string]interface{}{"files": 3, "dir": "datas"}`
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
