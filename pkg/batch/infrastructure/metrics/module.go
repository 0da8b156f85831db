package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/pkg/batch/core/config"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// TelemetryParams defines the dependencies of the telemetry constructors.
type TelemetryParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
}

// NewTracer returns an OpenTelemetry tracer when tracing is enabled, otherwise a no-op tracer.
// The TracerProvider is shut down, flushing spans, when the application stops.
func NewTracer(p TelemetryParams) (metrics.Tracer, error) {
	tracingCfg := p.Cfg.App.Observability.Tracing
	if !tracingCfg.Enabled {
		return metrics.NewNoOpTracer(), nil
	}

	tp, err := NewTracerProvider(context.Background(), tracingCfg)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	logger.Infof("Tracing enabled (exporter: %s).", tracingCfg.Exporter)
	return NewOpenTelemetryTracer(tp), nil
}

// MetricRecorderParams defines the dependencies of NewMetricRecorder.
type MetricRecorderParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Cfg        *config.Config
	Prometheus *PrometheusRecorder
}

// NewMetricRecorder combines the enabled recorders into one MetricRecorder.
func NewMetricRecorder(p MetricRecorderParams) (metrics.MetricRecorder, error) {
	obs := p.Cfg.App.Observability
	var recorders []metrics.MetricRecorder

	if obs.Metrics.Enabled {
		recorders = append(recorders, p.Prometheus)
	}

	if obs.OTelMetrics.Enabled {
		mp, err := NewMeterProvider(context.Background(), obs.OTelMetrics)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return mp.Shutdown(ctx)
			},
		})
		otelRecorder, err := NewOpenTelemetryRecorder(mp)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, otelRecorder)
		logger.Infof("OpenTelemetry metrics enabled (exporter: %s).", obs.OTelMetrics.Exporter)
	}

	return metrics.NewMultiRecorder(recorders...), nil
}

// Module is an Fx module that provides the PrometheusRecorder, the MetricRecorder and the Tracer.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
