package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/support/exception"
)

const instrumentationName = "github.com/tigerroll/nisthourly/batch"

// OTelRecorder is a MetricRecorder backed by an OpenTelemetry meter.
type OTelRecorder struct {
	provider *sdkmetric.MeterProvider

	jobDuration  metric.Float64Histogram
	jobCount     metric.Int64Counter
	stepDuration metric.Float64Histogram
	stepRows     metric.Int64Counter
	rows         metric.Int64Counter
	operation    metric.Float64Histogram
}

// NewOTelRecorder creates instruments on the given provider.
func NewOTelRecorder(provider *sdkmetric.MeterProvider) (*OTelRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelRecorder{provider: provider}
	var err error
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration", metric.WithUnit("s"), metric.WithDescription("Duration of batch job executions.")); err != nil {
		return nil, err
	}
	if r.jobCount, err = meter.Int64Counter("batch.job.executions", metric.WithDescription("Batch job executions by status.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("batch.step.duration", metric.WithUnit("s"), metric.WithDescription("Duration of batch step executions.")); err != nil {
		return nil, err
	}
	if r.stepRows, err = meter.Int64Counter("batch.step.rows", metric.WithDescription("Rows read, written and filtered by step.")); err != nil {
		return nil, err
	}
	if r.rows, err = meter.Int64Counter("nisthourly.rows", metric.WithDescription("Rows handled by the pipeline, by step and kind.")); err != nil {
		return nil, err
	}
	if r.operation, err = meter.Float64Histogram("nisthourly.operation.duration", metric.WithUnit("s"), metric.WithDescription("Duration of named pipeline operations.")); err != nil {
		return nil, err
	}
	return r, nil
}

// NewOTLPMeterProvider builds a MeterProvider exporting periodically to an OTLP endpoint.
func NewOTLPMeterProvider(ctx context.Context, cfg config.OTLPConfig, serviceName string) (*sdkmetric.MeterProvider, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		opts := []otlpmetrichttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, exception.NewBatchError("metrics", "failed to create OTLP metric exporter", err, false, false)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(serviceResource(serviceName)),
	), nil
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

func (r *OTelRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	r.jobCount.Add(ctx, 1, attrs)
}

func (r *OTelRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OTelRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	jobName := execution.JobExecution.JobName
	r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), metric.WithAttributes(
		attribute.String("job_name", jobName),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
	for kind, n := range map[string]int{"read": execution.ReadCount, "write": execution.WriteCount, "filter": execution.FilterCount} {
		if n == 0 {
			continue
		}
		r.stepRows.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("job_name", jobName),
			attribute.String("step_name", execution.StepName),
			attribute.String("kind", kind),
		))
	}
}

func (r *OTelRecorder) RecordRows(ctx context.Context, stepName string, kind string, count int) {
	r.rows.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("step_name", stepName),
		attribute.String("kind", kind),
	))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("operation", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operation.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Flush forces the provider to export pending measurements.
func (r *OTelRecorder) Flush(ctx context.Context) error {
	return r.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the provider.
func (r *OTelRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

var _ MetricRecorder = (*OTelRecorder)(nil)
