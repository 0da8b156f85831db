package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
)

// Module adds listeners forwarding job and step events to the MetricRecorder.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewMetricsJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+port.JobListenerGroup+`"`),
	)),
	fx.Provide(fx.Annotate(
		NewMetricsStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"`+port.StepListenerGroup+`"`),
	)),
)
