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

var _ port.Tasklet = (*FilterTasklet)(nil)

// FilterTasklet checks that weather and ground share their timestamps, then
// removes every timestamp flagged by a filter rule from both tables.
type FilterTasklet struct {
	cfg       *config.PipelineConfig
	workspace *Workspace
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
}

// NewFilterTasklet creates a FilterTasklet.
func NewFilterTasklet(cfg *config.PipelineConfig, workspace *Workspace, recorder metrics.MetricRecorder, tracer metrics.Tracer) *FilterTasklet {
	return &FilterTasklet{cfg: cfg, workspace: workspace, recorder: recorder, tracer: tracer}
}

// Execute runs the alignment check and the filter.
func (t *FilterTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	started := time.Now()
	weather, ground := t.workspace.Sources()
	if weather == nil || ground == nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf(FilterStepName, "no loaded tables in workspace")
	}
	ec := stepExecution.ExecutionContext
	stepExecution.ReadCount = weather.Len() + ground.Len()

	report := pipeline.CheckAlignment(weather, ground)
	ec.Put("alignment.weather_only", report.WeatherOnly)
	ec.Put("alignment.ground_only", report.GroundOnly)
	ec.Put("alignment.weather_duplicates", report.WeatherDuplicates)
	ec.Put("alignment.ground_duplicates", report.GroundDuplicates)
	if !report.Aligned() {
		logger.Warnf("Weather and ground timestamps are not aligned: %s", report)
		t.tracer.RecordEvent(ctx, "alignment.mismatch", map[string]interface{}{
			"weather_only": report.WeatherOnly,
			"ground_only":  report.GroundOnly,
		})
		if t.cfg.StrictAlignment {
			return model.ExitStatusFailed, exception.NewBatchError(FilterStepName, "strict alignment check failed", report.Err(), false, false)
		}
	}

	result, err := pipeline.Filter(weather, ground, RulesFromConfig(t.cfg.Filters))
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(FilterStepName, "failed to evaluate filter rules", err, false, false)
	}

	for _, criterion := range result.Criteria() {
		n := result.CriterionCounts[criterion]
		ec.Put("filter."+criterion, n)
		t.recorder.RecordRows(ctx, FilterStepName, "flagged_"+criterion, n)
		logger.Infof("Filter criterion '%s' flagged %d rows.", criterion, n)
	}
	ec.Put("filter.excluded_timestamps", result.ExcludedTimestamps)
	stepExecution.FilterCount = result.WeatherRemoved + result.GroundRemoved
	stepExecution.WriteCount = result.Weather.Len() + result.Ground.Len()
	t.recorder.RecordRows(ctx, FilterStepName, "excluded", result.ExcludedTimestamps)

	t.workspace.SetSources(result.Weather, result.Ground)
	t.workspace.SetCriterionCounts(result.CriterionCounts)
	t.workspace.AddCount("timestamps excluded", result.ExcludedTimestamps)
	t.workspace.AddCount("weather rows kept", result.Weather.Len())
	t.workspace.AddCount("ground rows kept", result.Ground.Len())

	t.recorder.RecordDuration(ctx, "filter", time.Since(started), nil)
	logger.Infof("Excluded %d timestamps: %d weather rows and %d ground rows removed.",
		result.ExcludedTimestamps, result.WeatherRemoved, result.GroundRemoved)
	return model.ExitStatusCompleted, nil
}

// Close does nothing.
func (t *FilterTasklet) Close(ctx context.Context) error {
	return nil
}

// RulesFromConfig converts the configured filter rules.
func RulesFromConfig(filters []config.FilterRuleConfig) []pipeline.Rule {
	rules := make([]pipeline.Rule, 0, len(filters))
	for _, f := range filters {
		rules = append(rules, pipeline.Rule{
			Criterion: f.Name,
			Source:    pipeline.Source(f.Source),
			Column:    f.Column,
			Op:        pipeline.Op(f.Op),
			Threshold: f.Threshold,
		})
	}
	return rules
}
