package job

import (
	"go.uber.org/fx"

	etlconfig "github.com/tigerroll/taxiweather/internal/config"
	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/internal/loader"
	"github.com/tigerroll/taxiweather/internal/persist"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	"github.com/tigerroll/taxiweather/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	coreConfig "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	repository "github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	"github.com/tigerroll/taxiweather/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
	"github.com/tigerroll/taxiweather/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// Dependencies holds what the ETL job needs to build its steps.
type Dependencies struct {
	Cfg             *coreConfig.Config
	JobRepository   repository.JobRepository
	Tracer          metrics.Tracer
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver
	JobListeners    []port.JobExecutionListener
	StepListeners   []port.StepExecutionListener
}

// NewETLJob binds the step properties and builds the job:
// loadTrips, loadWeather, aggregateTrips, normalizeWeather, persist, export.
func NewETLJob(d Dependencies) (*runner.SimpleJob, error) {
	app := d.Cfg.App

	tripsCfg := etlconfig.NewLoadTripsConfig()
	if err := etlconfig.Bind(etlconfig.StepLoadTrips, d.Cfg.StepProperties(etlconfig.StepLoadTrips), tripsCfg); err != nil {
		return nil, err
	}
	weatherCfg := etlconfig.NewLoadWeatherConfig()
	if err := etlconfig.Bind(etlconfig.StepLoadWeather, d.Cfg.StepProperties(etlconfig.StepLoadWeather), weatherCfg); err != nil {
		return nil, err
	}
	persistCfg := etlconfig.NewPersistConfig()
	if err := etlconfig.Bind(etlconfig.StepPersist, d.Cfg.StepProperties(etlconfig.StepPersist), persistCfg); err != nil {
		return nil, err
	}
	exportCfg := etlconfig.NewExportConfig()
	if err := etlconfig.Bind(etlconfig.StepExport, d.Cfg.StepProperties(etlconfig.StepExport), exportCfg); err != nil {
		return nil, err
	}

	state := &State{}
	policy := app.Pipeline.InvalidTimestamps
	inputLoader := loader.NewLoader(d.StorageResolver, app.Infrastructure.InputStorageRef, tripsCfg.Glob)
	persister := persist.NewPersister(d.DBResolver, app.Infrastructure.OutputDBRef, persistCfg.BatchSize)

	export := generic.NewParquetExportTasklet(generic.ParquetExportTaskletConfig{
		Enabled:         exportCfg.Enabled,
		StorageRef:      app.Infrastructure.ExportStorageRef,
		Bucket:          exportCfg.Bucket,
		ObjectName:      exportCfg.ObjectName,
		CompressionType: exportCfg.Compression,
	}, d.StorageResolver, persister.LoadAll, new(entity.TaxiTrip))

	tasklets := []struct {
		name    string
		tasklet port.Tasklet
	}{
		{etlconfig.StepLoadTrips, NewLoadTripsTasklet(inputLoader, tripsCfg, state)},
		{etlconfig.StepLoadWeather, NewLoadWeatherTasklet(inputLoader, weatherCfg, state)},
		{etlconfig.StepAggregate, NewAggregateTasklet(policy, state)},
		{etlconfig.StepNormalize, NewNormalizeTasklet(policy, state)},
		{etlconfig.StepPersist, NewPersistTasklet(persister, state)},
		{etlconfig.StepExport, export},
	}

	steps := make([]port.Step, 0, len(tasklets))
	for _, t := range tasklets {
		steps = append(steps, tasklet.NewTaskletStep(t.name, t.tasklet, d.JobRepository, d.StepListeners, d.Tracer))
	}
	logger.Debugf("Built job '%s' with %d steps.", app.Job.Name, len(steps))
	return runner.NewSimpleJob(app.Job.Name, steps, d.JobListeners), nil
}

// JobParams defines the Fx dependencies of ProvideETLJob.
type JobParams struct {
	fx.In
	Cfg             *coreConfig.Config
	JobRepository   repository.JobRepository
	Tracer          metrics.Tracer
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver
	JobListeners    []port.JobExecutionListener  `group:"job_listeners"`
	StepListeners   []port.StepExecutionListener `group:"step_listeners"`
}

// JobResult adds the ETL job to the jobs group.
type JobResult struct {
	fx.Out
	Job port.Job `group:"jobs"`
}

// ProvideETLJob builds the ETL job from the application graph.
func ProvideETLJob(p JobParams) (JobResult, error) {
	j, err := NewETLJob(Dependencies{
		Cfg:             p.Cfg,
		JobRepository:   p.JobRepository,
		Tracer:          p.Tracer,
		DBResolver:      p.DBResolver,
		StorageResolver: p.StorageResolver,
		JobListeners:    p.JobListeners,
		StepListeners:   p.StepListeners,
	})
	if err != nil {
		return JobResult{}, err
	}
	return JobResult{Job: j}, nil
}

// Module provides the ETL job to the JobLauncher.
var Module = fx.Options(
	fx.Provide(ProvideETLJob),
)
