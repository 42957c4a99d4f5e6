package tasklet

import (
	"context"
	"time"

	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/pipeline"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

var _ port.Tasklet = (*AggregateTasklet)(nil)

// AggregateTasklet projects both tables, merges them on the timestamp key,
// averages them per hour and drops incomplete hours.
type AggregateTasklet struct {
	cfg       *config.PipelineConfig
	workspace *Workspace
	recorder  metrics.MetricRecorder
}

// NewAggregateTasklet creates an AggregateTasklet.
func NewAggregateTasklet(cfg *config.PipelineConfig, workspace *Workspace, recorder metrics.MetricRecorder) *AggregateTasklet {
	return &AggregateTasklet{cfg: cfg, workspace: workspace, recorder: recorder}
}

// Execute builds the hourly table.
func (t *AggregateTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	started := time.Now()
	weather, ground := t.workspace.Sources()
	if weather == nil || ground == nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf(AggregateStepName, "no filtered tables in workspace")
	}
	policy, err := pipeline.ParseMissingPolicy(t.cfg.MissingPolicy)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(AggregateStepName, "invalid missing policy", err, false, false)
	}

	input, err := pipeline.Project(weather, Mappings(t.cfg.Weather.Columns))
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(AggregateStepName, "failed to project weather columns", err, false, false)
	}
	output, err := pipeline.Project(ground, Mappings(t.cfg.Ground.Columns))
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(AggregateStepName, "failed to project ground columns", err, false, false)
	}
	merged, err := pipeline.Merge(input, output)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(AggregateStepName, "failed to merge weather and ground", err, false, false)
	}

	resampled := pipeline.ResampleHourly(merged, policy)
	hourly, dropped := pipeline.DropIncomplete(resampled)

	ec := stepExecution.ExecutionContext
	ec.Put("merged.rows", merged.Len())
	ec.Put("resampled.rows", resampled.Len())
	ec.Put("dropped.hours", dropped)
	ec.Put("hourly.rows", hourly.Len())
	stepExecution.ReadCount = merged.Len()
	stepExecution.WriteCount = hourly.Len()
	stepExecution.FilterCount = dropped

	t.workspace.SetHourly(hourly)
	t.workspace.AddCount("hours resampled", resampled.Len())
	t.workspace.AddCount("hours dropped", dropped)
	t.workspace.AddCount("hours written", hourly.Len())
	t.recorder.RecordRows(ctx, AggregateStepName, "hourly", hourly.Len())
	t.recorder.RecordRows(ctx, AggregateStepName, "dropped_hours", dropped)
	t.recorder.RecordDuration(ctx, "aggregate", time.Since(started), map[string]string{"policy": string(policy)})

	logger.Infof("Aggregated %d merged rows into %d hours (%d dropped as incomplete, policy %s).",
		merged.Len(), hourly.Len(), dropped, policy)
	return model.ExitStatusCompleted, nil
}

// Close does nothing.
func (t *AggregateTasklet) Close(ctx context.Context) error {
	return nil
}

// Mappings converts configured column mappings.
func Mappings(columns []config.ColumnMapping) []pipeline.ColumnMapping {
	out := make([]pipeline.ColumnMapping, 0, len(columns))
	for _, c := range columns {
		out = append(out, pipeline.ColumnMapping{Source: c.Source, Target: c.Target})
	}
	return out
}
