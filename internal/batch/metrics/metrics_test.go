package metrics_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
)

func finishedStep(t *testing.T) *model.StepExecution {
	t.Helper()
	je := model.NewJobExecution("nistHourlyJob", nil)
	je.MarkAsStarted()
	se := model.NewStepExecution("filterStep", je)
	se.MarkAsStarted()
	se.ReadCount = 10
	se.WriteCount = 7
	se.FilterCount = 3
	se.MarkAsCompleted("")
	return se
}

// TestPrometheusRecorder_StepCounts verifies the final step counts land in the counters.
func TestPrometheusRecorder_StepCounts(t *testing.T) {
	r := metrics.NewPrometheusRecorder("")
	se := finishedStep(t)
	ctx := context.Background()

	r.RecordStepStart(ctx, se)
	r.RecordStepEnd(ctx, se)
	r.RecordRows(ctx, "filterStep", "excluded", 3)

	count, err := testutil.GatherAndCount(r.GetRegistry(), "batch_step_filter_total", "batch_step_read_total", "nisthourly_rows_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, r.Flush(ctx))
}

// TestPrometheusRecorder_FlushWritesTextfile checks the registry is dumped in text format.
func TestPrometheusRecorder_FlushWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nisthourly.prom")
	r := metrics.NewPrometheusRecorder(path)
	r.RecordRows(context.Background(), "loadStep", "loaded", 42)
	r.RecordDuration(context.Background(), "load", 2*time.Second, nil)

	require.NoError(t, r.Flush(context.Background()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `nisthourly_rows_total{kind="loaded",step_name="loadStep"} 42`)
	assert.Contains(t, string(data), "nisthourly_operation_duration_seconds")
}

// TestOTelRecorder_CollectsMeasurements reads the instruments back through a manual reader.
func TestOTelRecorder_CollectsMeasurements(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := metrics.NewOTelRecorder(provider)
	require.NoError(t, err)

	ctx := context.Background()
	se := finishedStep(t)
	r.RecordStepEnd(ctx, se)
	r.RecordRows(ctx, "writeStep", "written", 5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["batch.step.duration"])
	assert.True(t, names["batch.step.rows"])
	assert.True(t, names["nisthourly.rows"])
	require.NoError(t, r.Shutdown(ctx))
}

// TestOTelTracer_SpansAndErrors checks step spans nest under the job span and failures mark the span.
func TestOTelTracer_SpansAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := metrics.NewOTelTracer(tp)

	je := model.NewJobExecution("nistHourlyJob", nil)
	je.MarkAsStarted()
	ctx, endJob := tracer.StartJobSpan(context.Background(), je)

	se := model.NewStepExecution("loadStep", je)
	se.MarkAsStarted()
	stepCtx, endStep := tracer.StartStepSpan(ctx, se)
	tracer.RecordEvent(stepCtx, "file_loaded", map[string]interface{}{"rows": 1440, "file": "a.csv"})
	tracer.RecordError(stepCtx, "loadStep", errors.New("missing file"))
	se.MarkAsFailed(errors.New("missing file"))
	endStep()

	je.MarkAsFailed(errors.New("missing file"))
	endJob()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	step, job := spans[0], spans[1]
	assert.Equal(t, "step loadStep", step.Name())
	assert.Equal(t, "job nistHourlyJob", job.Name())
	assert.Equal(t, job.SpanContext().SpanID(), step.Parent().SpanID())
	assert.Equal(t, codes.Error, step.Status().Code)
	assert.Len(t, step.Events(), 2)
}

// TestNoOp_Implementations ensures the no-op variants are safe to call.
func TestNoOp_Implementations(t *testing.T) {
	r := metrics.NewNoOpMetricRecorder()
	tr := metrics.NewNoOpTracer()
	ctx := context.Background()
	je := model.NewJobExecution("job", nil)

	r.RecordJobStart(ctx, je)
	r.RecordRows(ctx, "s", "k", 1)
	assert.NoError(t, r.Flush(ctx))

	got, end := tr.StartJobSpan(ctx, je)
	end()
	assert.Equal(t, ctx, got)
}
