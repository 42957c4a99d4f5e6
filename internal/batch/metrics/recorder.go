// Package metrics defines how job and step executions are measured and traced,
// with Prometheus and OpenTelemetry implementations.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/nisthourly/internal/batch/model"
)

// MetricRecorder records metrics about batch executions.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution, including its read, write and filter counts.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordRows records rows handled by a step, labelled with a kind such as
	// "loaded", "excluded" or "written".
	RecordRows(ctx context.Context, stepName string, kind string, count int)
	// RecordDuration records the execution time of a named operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
	// Flush pushes buffered measurements to the backend.
	Flush(ctx context.Context) error
}

// Tracer traces job and step executions.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution and returns the function ending it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a span for a StepExecution, normally below the job span.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError records an error on the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records an event on the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
