package tasklet

import (
	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/adapter/database"
	"github.com/tigerroll/nisthourly/internal/adapter/storage"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/config"
)

// ExportTaskletParams collects the dependencies of the ExportTasklet.
// Migrations are optional; without them the export database must already hold the schema.
type ExportTaskletParams struct {
	fx.In
	Export     *config.ExportConfig
	Pipeline   *config.PipelineConfig
	Storage    StorageResolver
	Databases  DatabaseResolver
	Migrations database.MigrationSource `optional:"true"`
	Workspace  *Workspace
	Recorder   metrics.MetricRecorder
}

// NewExportTaskletFromParams builds the ExportTasklet. Workbook timestamps use the ground file layout.
func NewExportTaskletFromParams(p ExportTaskletParams) *ExportTasklet {
	return NewExportTasklet(p.Export, p.Pipeline.GroundOutput.TimeLayout, p.Storage, p.Databases, p.Migrations, p.Workspace, p.Recorder)
}

// Module provides the Workspace and the tasklets of nistHourlyJob.
var Module = fx.Options(
	fx.Provide(
		NewWorkspace,
		func(r *storage.Resolver) StorageResolver { return r },
		func(p *database.Provider) DatabaseResolver { return p },
		NewLoadTasklet,
		NewFilterTasklet,
		NewAggregateTasklet,
		NewWriteTasklet,
		NewExportTaskletFromParams,
	),
)
