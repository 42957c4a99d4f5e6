package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// NewMetricRecorderFromConfig selects the MetricRecorder named by metrics.provider.
// The OpenTelemetry provider is shut down with the application.
func NewMetricRecorderFromConfig(lc fx.Lifecycle, cfg *config.Config) (MetricRecorder, error) {
	mc := cfg.NistHourly.Metrics
	switch mc.Provider {
	case "otel":
		provider, err := NewOTLPMeterProvider(context.Background(), mc.OTLP, cfg.NistHourly.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		recorder, err := NewOTelRecorder(provider)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: recorder.Shutdown})
		logger.Infof("Metrics: using OpenTelemetry recorder (%s).", mc.OTLP.Protocol)
		return recorder, nil
	case "none":
		return NewNoOpMetricRecorder(), nil
	default:
		logger.Debugf("Metrics: using Prometheus recorder.")
		return NewPrometheusRecorder(mc.TextfilePath), nil
	}
}

// NewTracerFromConfig returns an OTelTracer exporting over OTLP when tracing is enabled.
func NewTracerFromConfig(lc fx.Lifecycle, cfg *config.Config) (Tracer, error) {
	tc := cfg.NistHourly.Tracing
	if !tc.Enabled {
		return NewNoOpTracer(), nil
	}
	tp, err := NewOTLPTracerProvider(context.Background(), tc.OTLP, tc.ServiceName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	return NewOTelTracer(tp), nil
}

// Module provides the MetricRecorder and Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorderFromConfig),
	fx.Provide(NewTracerFromConfig),
)
