package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/internal/job"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/taxiweather/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	"github.com/tigerroll/taxiweather/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	"github.com/tigerroll/taxiweather/pkg/batch/core/job/runner"
	"github.com/tigerroll/taxiweather/pkg/batch/core/support/incrementer"
	inframetrics "github.com/tigerroll/taxiweather/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/taxiweather/pkg/batch/infrastructure/repository/sql"
	logginglistener "github.com/tigerroll/taxiweather/pkg/batch/listener/logging"
	metricslistener "github.com/tigerroll/taxiweather/pkg/batch/listener/metrics"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// etlOptions is the graph of the etl command.
func etlOptions(opts Options, appCtx context.Context, outcome *Outcome) fx.Option {
	return fx.Options(
		baseOptions(opts),
		fx.Supply(outcome),
		fx.Supply(fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`))),

		storage.Module,
		local.Module,
		gcs.Module,

		// Migration must come before anything writing to the ledger.
		migration.Module,
		sql.Module,
		inframetrics.Module,
		logginglistener.Module,
		metricslistener.Module,
		runner.Module,
		usecase.LauncherModule,
		usecase.ExplorerModule,
		incrementer.Module,
		job.Module,

		fx.Invoke(registerJobExecution),
	)
}

type jobExecutionParams struct {
	fx.In
	Lifecycle    fx.Lifecycle
	Shutdowner   fx.Shutdowner
	Launcher     usecase.JobLauncher
	Explorer     usecase.JobExplorer
	Incrementers []port.JobParametersIncrementer `group:"job_parameters_incrementers"`
	Cfg          *config.Config
	Prometheus   *inframetrics.PrometheusRecorder
	Outcome      *Outcome
	AppCtx       context.Context `name:"appCtx"`
}

// registerJobExecution launches the ETL job once the application has started
// and shuts the application down when the job finishes.
func registerJobExecution(p jobExecutionParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						p.Outcome.Err = fmt.Errorf("job execution panicked: %v", r)
						exitCode = 1
					}
					logger.Infof("Requesting application shutdown after job completion.")
					if err := p.Shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				if err := executeJob(p.AppCtx, p); err != nil {
					p.Outcome.Err = err
					exitCode = 1
				}
			}()
			return nil
		},
	})
}

// nextJobParameters applies the incrementers to the parameters of the latest run of jobName.
func nextJobParameters(ctx context.Context, explorer usecase.JobExplorer, jobName string, incrementers []port.JobParametersIncrementer) (model.JobParameters, error) {
	previous := model.NewJobParameters()
	last, err := explorer.GetLastJobExecution(ctx, jobName)
	switch {
	case err == nil:
		previous = last.Parameters
	case errors.Is(err, repository.ErrJobExecutionNotFound):
	default:
		return nil, err
	}
	return incrementer.Chain(previous, incrementers...), nil
}

func executeJob(ctx context.Context, p jobExecutionParams) error {
	cfg, prometheus := p.Cfg, p.Prometheus
	params, err := nextJobParameters(ctx, p.Explorer, cfg.App.Job.Name, p.Incrementers)
	if err != nil {
		return err
	}

	jobExecution, err := p.Launcher.Launch(ctx, cfg.App.Job.Name, params)

	if textfile := cfg.App.Observability.Metrics.Textfile; textfile != "" && cfg.App.Observability.Metrics.Enabled {
		if writeErr := prometheus.WriteToTextfile(textfile); writeErr != nil {
			logger.Warnf("Failed to write metrics textfile '%s': %v", textfile, writeErr)
		} else {
			logger.Debugf("Metrics written to '%s'.", textfile)
		}
	}

	if err != nil {
		return err
	}
	logger.Infof("Job '%s' finished with status %s (Execution ID: %s).", jobExecution.JobName, jobExecution.Status, jobExecution.ID)
	return nil
}

// RunETL loads the input, rebuilds taxi_trips and records the run in the ledger.
// It returns the error that failed the job, if any.
func RunETL(ctx context.Context, opts Options) error {
	outcome := &Outcome{}
	app := fx.New(etlOptions(opts, ctx, outcome))
	return run(ctx, app, outcome, false)
}
