// Package incrementer derives the parameters of each job run from the previous run.
package incrementer

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// Chain applies incrementers in order. Each incrementer should own distinct keys, since fx
// value groups carry no order.
func Chain(params model.JobParameters, incrementers ...port.JobParametersIncrementer) model.JobParameters {
	next := copyParams(params)
	for _, inc := range incrementers {
		next = inc.GetNext(next)
	}
	return next
}

func asIncrementer(f interface{}) interface{} {
	return fx.Annotate(
		f,
		fx.As(new(port.JobParametersIncrementer)),
		fx.ResultTags(`group:"`+port.IncrementerGroup+`"`),
	)
}

// Module contributes the run id and timestamp incrementers with their default parameter names.
var Module = fx.Provide(
	asIncrementer(func() *RunIDIncrementer { return NewRunIDIncrementer(DefaultRunIDKey) }),
	asIncrementer(func() *TimestampIncrementer { return NewTimestampIncrementer(DefaultTimestampKey) }),
)
