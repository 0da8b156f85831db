package job

import (
	"context"

	"github.com/tigerroll/taxiweather/internal/aggregate"
	etlconfig "github.com/tigerroll/taxiweather/internal/config"
	"github.com/tigerroll/taxiweather/internal/loader"
	"github.com/tigerroll/taxiweather/internal/persist"
	"github.com/tigerroll/taxiweather/internal/weather"
	"github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	coreConfig "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// LoadTripsTasklet reads every trip file into the run state.
type LoadTripsTasklet struct {
	loader *loader.Loader
	dir    string
	state  *State
}

// NewLoadTripsTasklet creates a LoadTripsTasklet that reads the trip files under cfg.Dir.
func NewLoadTripsTasklet(l *loader.Loader, cfg *etlconfig.LoadTripsConfig, state *State) *LoadTripsTasklet {
	return &LoadTripsTasklet{loader: l, dir: cfg.Dir, state: state}
}

func (t *LoadTripsTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	// First step of a run.
	t.state.Reset()

	trips, err := t.loader.LoadTrips(ctx, t.dir)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.state.Trips = trips
	se.ReadCount = len(trips)
	se.WriteCount = len(trips)
	return model.ExitStatusCompleted, nil
}

// LoadWeatherTasklet reads the weather CSV into the run state.
type LoadWeatherTasklet struct {
	loader *loader.Loader
	path   string
	state  *State
}

// NewLoadWeatherTasklet creates a LoadWeatherTasklet that reads the weather file at cfg.Path.
func NewLoadWeatherTasklet(l *loader.Loader, cfg *etlconfig.LoadWeatherConfig, state *State) *LoadWeatherTasklet {
	return &LoadWeatherTasklet{loader: l, path: cfg.Path, state: state}
}

func (t *LoadWeatherTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	records, err := t.loader.LoadWeather(ctx, t.path)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.state.Weather = records
	se.ReadCount = len(records)
	se.WriteCount = len(records)
	return model.ExitStatusCompleted, nil
}

// AggregateTasklet groups the loaded trips by date, hour and payment type.
type AggregateTasklet struct {
	policy coreConfig.InvalidTimestampPolicy
	state  *State
}

// NewAggregateTasklet creates an AggregateTasklet applying policy to invalid pickup times.
func NewAggregateTasklet(policy coreConfig.InvalidTimestampPolicy, state *State) *AggregateTasklet {
	return &AggregateTasklet{policy: policy, state: state}
}

func (t *AggregateTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	groups, stats, err := aggregate.Aggregate(t.state.Trips, t.policy)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.state.Aggregates = groups
	// The raw trips are no longer needed.
	t.state.Trips = nil

	se.ReadCount = stats.Input
	se.WriteCount = stats.Groups
	se.FilterCount = stats.Excluded()
	se.ExecutionContext.Put("invalid_timestamps", stats.InvalidTimestamp)
	se.ExecutionContext.Put("null_payment_types", stats.NullPaymentType)
	return model.ExitStatusCompleted, nil
}

// NormalizeTasklet turns the weather records into one row per calendar date.
type NormalizeTasklet struct {
	policy coreConfig.InvalidTimestampPolicy
	state  *State
}

// NewNormalizeTasklet creates a NormalizeTasklet applying policy to invalid weather dates.
func NewNormalizeTasklet(policy coreConfig.InvalidTimestampPolicy, state *State) *NormalizeTasklet {
	return &NormalizeTasklet{policy: policy, state: state}
}

func (t *NormalizeTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	days, stats := weather.Normalize(t.state.Weather, t.policy)
	t.state.Days = days
	t.state.Weather = nil

	se.ReadCount = stats.Input
	se.WriteCount = stats.Days
	se.FilterCount = stats.InvalidDate + stats.Duplicates
	se.ExecutionContext.Put("invalid_dates", stats.InvalidDate)
	se.ExecutionContext.Put("duplicate_dates", stats.Duplicates)
	return model.ExitStatusCompleted, nil
}

// PersistTasklet joins aggregates with weather and replaces taxi_trips.
type PersistTasklet struct {
	persister *persist.Persister
	state     *State
}

// NewPersistTasklet creates a PersistTasklet that writes through p.
func NewPersistTasklet(p *persist.Persister, state *State) *PersistTasklet {
	return &PersistTasklet{persister: p, state: state}
}

func (t *PersistTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	rows, err := persist.Join(t.state.Aggregates, t.state.Days)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := t.persister.Replace(ctx, rows); err != nil {
		return model.ExitStatusFailed, err
	}

	se.ReadCount = len(t.state.Aggregates)
	se.WriteCount = len(rows)
	se.FilterCount = len(t.state.Aggregates) - len(rows)
	return model.ExitStatusCompleted, nil
}

var (
	_ port.Tasklet = (*LoadTripsTasklet)(nil)
	_ port.Tasklet = (*LoadWeatherTasklet)(nil)
	_ port.Tasklet = (*AggregateTasklet)(nil)
	_ port.Tasklet = (*NormalizeTasklet)(nil)
	_ port.Tasklet = (*PersistTasklet)(nil)
)
