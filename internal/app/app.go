// Package app assembles the fx application graphs behind the etl, dashboard and inspect commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// DBProviderModules maps a dialect name to the module providing its DBProvider.
var DBProviderModules = map[string]fx.Option{
	"sqlite":   sqlite.Module,
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
}

// DefaultDBAdapters are registered when Options.DBAdapters is empty.
var DefaultDBAdapters = []string{"sqlite", "postgres", "mysql"}

// Options is what the command line hands to every application graph.
type Options struct {
	EmbeddedConfig config.EmbeddedConfig
	// EnvFilePath is the .env file loaded before the environment is read. Empty means ./.env.
	EnvFilePath string
	// DBAdapters selects the database dialects to register.
	DBAdapters []string
	// Overrides are applied to the loaded configuration, in order.
	Overrides []func(*config.Config)
}

func dbProviderOptions(names []string) fx.Option {
	if len(names) == 0 {
		names = DefaultDBAdapters
	}
	options := make([]fx.Option, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		module, ok := DBProviderModules[name]
		if !ok {
			logger.Warnf("DB adapter '%s' is not supported. Skipping.", name)
			continue
		}
		options = append(options, module)
		logger.Debugf("DB adapter '%s' registered.", name)
	}
	return fx.Options(options...)
}

func applyOverrides(overrides []func(*config.Config)) func(*config.Config) *config.Config {
	return func(cfg *config.Config) *config.Config {
		for _, override := range overrides {
			override(cfg)
		}
		return cfg
	}
}

// baseOptions is shared by every graph: logging, configuration and the database adapters.
func baseOptions(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(
			opts.EmbeddedConfig,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,
		fx.Decorate(applyOverrides(opts.Overrides)),
		dbProviderOptions(opts.DBAdapters),
		gormadapter.Module,
	)
}

// Outcome receives the result of work done inside the application's lifecycle.
type Outcome struct {
	Err error
}

// run starts app, waits until it asks to shut down, then stops it. With stopOnCancel a cancelled
// ctx also stops it; otherwise the work running inside the app is expected to observe ctx itself.
// A startup failure is returned as is; otherwise outcome.Err wins over the stop error.
func run(ctx context.Context, app *fx.App, outcome *Outcome, stopOnCancel bool) error {
	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return startupError(err)
	}

	var cancelled <-chan struct{}
	if stopOnCancel {
		cancelled = ctx.Done()
	}
	select {
	case sig := <-app.Wait():
		logger.Debugf("Application shutdown requested (exit code %d).", sig.ExitCode)
	case <-cancelled:
		logger.Warnf("Stopping application: %v", ctx.Err())
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	stopErr := app.Stop(stopCtx)

	if outcome != nil && outcome.Err != nil {
		return outcome.Err
	}
	return stopErr
}

// startupError keeps a BatchError raised by a constructor or hook recognisable to callers.
func startupError(err error) error {
	var batchErr *exception.BatchError
	if errors.As(err, &batchErr) {
		return batchErr
	}
	return fmt.Errorf("application failed to start: %w", err)
}
