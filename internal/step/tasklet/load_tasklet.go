package tasklet

import (
	"context"
	"strings"
	"time"

	"github.com/tigerroll/nisthourly/internal/adapter/storage"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/pipeline"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// Step names of nistHourlyJob.
const (
	LoadStepName      = "loadStep"
	FilterStepName    = "filterStep"
	AggregateStepName = "aggregateStep"
	WriteStepName     = "writeStep"
	ExportStepName    = "exportStep"
)

// StorageResolver resolves named storage connections. *storage.Resolver satisfies it.
type StorageResolver interface {
	Resolve(ctx context.Context, name string) (storage.Connection, error)
}

var _ port.Tasklet = (*LoadTasklet)(nil)

// LoadTasklet reads the monthly weather and ground files and converts their
// index to the configured timezone.
type LoadTasklet struct {
	cfg       *config.PipelineConfig
	resolver  StorageResolver
	workspace *Workspace
	recorder  metrics.MetricRecorder
}

// NewLoadTasklet creates a LoadTasklet.
func NewLoadTasklet(cfg *config.PipelineConfig, resolver StorageResolver, workspace *Workspace, recorder metrics.MetricRecorder) *LoadTasklet {
	return &LoadTasklet{cfg: cfg, resolver: resolver, workspace: workspace, recorder: recorder}
}

// Execute checks that every monthly file of both sources exists, then loads them.
func (t *LoadTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	started := time.Now()

	conn, err := t.resolver.Resolve(ctx, t.cfg.InputStorageRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(LoadStepName, "failed to resolve input storage", err, false, false)
	}
	source, err := time.LoadLocation(t.cfg.SourceTimezone)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(LoadStepName, "invalid source timezone", err, false, false)
	}
	target, err := time.LoadLocation(t.cfg.Timezone)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(LoadStepName, "invalid timezone", err, false, false)
	}

	sources := []struct {
		name pipeline.Source
		cfg  config.SourceConfig
	}{{pipeline.SourceWeather, t.cfg.Weather}, {pipeline.SourceGround, t.cfg.Ground}}

	var missing []string
	for _, src := range sources {
		objects := pipeline.MonthlyObjects(src.cfg.Directory, src.cfg.Prefix, t.cfg.Year, t.cfg.Months)
		m, err := pipeline.MissingObjects(ctx, conn, src.cfg.Directory, objects)
		if err != nil {
			return model.ExitStatusFailed, exception.NewBatchError(LoadStepName, "failed to list "+string(src.name)+" files", err, false, false)
		}
		missing = append(missing, m...)
	}
	if len(missing) > 0 {
		stepExecution.ExecutionContext.Put("missing.files", len(missing))
		return model.ExitStatusFailed, exception.NewBatchErrorf(LoadStepName, "%d input files missing from storage '%s': %s",
			len(missing), t.cfg.InputStorageRef, strings.Join(missing, ", "))
	}

	loader := pipeline.NewLoader(conn, t.cfg.TimestampColumn)
	tables := make(map[pipeline.Source]*pipeline.Table, 2)
	for _, src := range sources {
		objects := pipeline.MonthlyObjects(src.cfg.Directory, src.cfg.Prefix, t.cfg.Year, t.cfg.Months)
		columns := RequiredColumns(src.cfg, t.cfg.Filters, src.name)
		logger.Infof("Loading %d %s files (%d columns) from storage '%s'.", len(objects), src.name, len(columns), t.cfg.InputStorageRef)

		raw, err := loader.Load(ctx, objects, columns)
		if err != nil {
			return model.ExitStatusFailed, exception.NewBatchErrorf(LoadStepName, "failed to load %s files: %v", src.name, err)
		}
		tables[src.name] = pipeline.ConvertTimezone(raw, source, target)

		stepExecution.ExecutionContext.Put(string(src.name)+".files", len(objects))
		stepExecution.ExecutionContext.Put(string(src.name)+".rows", raw.Len())
		stepExecution.ReadCount += raw.Len()
		t.recorder.RecordRows(ctx, LoadStepName, "loaded_"+string(src.name), raw.Len())
	}

	weather, ground := tables[pipeline.SourceWeather], tables[pipeline.SourceGround]
	t.workspace.SetSources(weather, ground)
	t.workspace.AddCount("weather rows loaded", weather.Len())
	t.workspace.AddCount("ground rows loaded", ground.Len())
	stepExecution.WriteCount = weather.Len() + ground.Len()

	t.recorder.RecordDuration(ctx, "load", time.Since(started), nil)
	logger.Infof("Loaded %d weather rows and %d ground rows, index converted from %s to %s.",
		weather.Len(), ground.Len(), t.cfg.SourceTimezone, t.cfg.Timezone)
	return model.ExitStatusCompleted, nil
}

// Close does nothing; connections are owned by the storage resolver.
func (t *LoadTasklet) Close(ctx context.Context) error {
	return nil
}

// RequiredColumns lists the raw columns a source must provide: the projected
// columns followed by the filter columns of that source, without repeats.
func RequiredColumns(src config.SourceConfig, filters []config.FilterRuleConfig, name pipeline.Source) []string {
	seen := make(map[string]struct{})
	var columns []string
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		columns = append(columns, c)
	}
	for _, m := range src.Columns {
		add(m.Source)
	}
	for _, f := range filters {
		if pipeline.Source(f.Source) == name {
			add(f.Column)
		}
	}
	return columns
}
