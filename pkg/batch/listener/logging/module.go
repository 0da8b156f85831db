package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
)

// Module adds the logging listeners to the job and step listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+port.JobListenerGroup+`"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"`+port.StepListenerGroup+`"`),
	)),
)
