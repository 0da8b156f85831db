package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/internal/dashboard"
	"github.com/tigerroll/taxiweather/internal/persist"
	"github.com/tigerroll/taxiweather/internal/presentation"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
	inframetrics "github.com/tigerroll/taxiweather/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// NewPresentationState reads taxi_trips once. An unreadable table fails startup.
func NewPresentationState(resolver database.DBConnectionResolver, cfg *config.Config) (*presentation.State, error) {
	rows, err := persist.NewPersister(resolver, cfg.App.Infrastructure.OutputDBRef, 0).LoadAll(context.Background())
	if err != nil {
		return nil, err
	}
	state := presentation.NewState(rows)
	logger.Infof("Loaded %d rows covering %d months.", state.Len(), len(state.Months()))
	return state, nil
}

type dashboardParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Cfg        *config.Config
	State      *presentation.State
	Prometheus *inframetrics.PrometheusRecorder
	Recorder   metrics.MetricRecorder
}

// NewDashboardServer builds the HTTP server and ties it to the application lifecycle.
func NewDashboardServer(p dashboardParams) *dashboard.Server {
	dashCfg := p.Cfg.App.Dashboard
	var metricsHandler http.Handler
	if p.Cfg.App.Observability.Metrics.Enabled {
		metricsHandler = p.Prometheus.Handler()
	}

	srv := dashboard.New(p.State, dashboard.Options{
		Addr:            dashCfg.Addr,
		ShutdownTimeout: time.Duration(dashCfg.ShutdownTimeoutSeconds) * time.Second,
		MetricsHandler:  metricsHandler,
		Recorder:        p.Recorder,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: srv.Start,
		OnStop:  srv.Stop,
	})
	return srv
}

// dashboardOptions is the graph of the dashboard command.
func dashboardOptions(opts Options) fx.Option {
	return fx.Options(
		baseOptions(opts),
		inframetrics.Module,
		fx.Provide(NewPresentationState),
		fx.Provide(NewDashboardServer),
		fx.Invoke(func(*dashboard.Server) {}),
	)
}

// RunDashboard serves the dashboard until ctx is cancelled.
func RunDashboard(ctx context.Context, opts Options) error {
	gin.SetMode(gin.ReleaseMode)
	app := fx.New(dashboardOptions(opts))
	return run(ctx, app, nil, true)
}
