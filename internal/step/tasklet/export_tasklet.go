package tasklet

import (
	"context"
	"time"

	"github.com/tigerroll/nisthourly/internal/adapter/database"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/export"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// DatabaseResolver opens named database connections. *database.Provider satisfies it.
type DatabaseResolver interface {
	GetConnection(name string) (*database.Connection, error)
}

var _ port.Tasklet = (*ExportTasklet)(nil)

// ExportTasklet runs the enabled optional sinks on the hourly table.
// The step ends with NO_OP when no sink is enabled.
type ExportTasklet struct {
	cfg        *config.ExportConfig
	timeLayout string
	storage    StorageResolver
	databases  DatabaseResolver
	migrations database.MigrationSource
	workspace  *Workspace
	recorder   metrics.MetricRecorder
}

// NewExportTasklet creates an ExportTasklet. Index cells of the workbook use timeLayout.
func NewExportTasklet(
	cfg *config.ExportConfig,
	timeLayout string,
	storage StorageResolver,
	databases DatabaseResolver,
	migrations database.MigrationSource,
	workspace *Workspace,
	recorder metrics.MetricRecorder,
) *ExportTasklet {
	return &ExportTasklet{
		cfg:        cfg,
		timeLayout: timeLayout,
		storage:    storage,
		databases:  databases,
		migrations: migrations,
		workspace:  workspace,
		recorder:   recorder,
	}
}

// Execute builds the enabled exporters and runs them in order.
func (t *ExportTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	hourly := t.workspace.Hourly()
	if hourly == nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf(ExportStepName, "no hourly table in workspace")
	}

	exporters, err := t.exporters(ctx)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if len(exporters) == 0 {
		logger.Infof("No export sink is enabled.")
		return model.ExitStatusNoOp, nil
	}

	summary := t.workspace.Summary()
	summary.RunID = stepExecution.JobExecutionID
	summary.GeneratedAt = time.Now()
	if stepExecution.JobExecution != nil {
		summary.JobName = stepExecution.JobExecution.JobName
	}
	in := export.Input{RunID: stepExecution.JobExecutionID, Hourly: hourly, Summary: summary}

	stepExecution.ReadCount = hourly.Len()
	for _, e := range exporters {
		select {
		case <-ctx.Done():
			return model.ExitStatusStopped, ctx.Err()
		default:
		}
		started := time.Now()
		n, err := e.Export(ctx, in)
		if err != nil {
			return model.ExitStatusFailed, exception.NewBatchError(ExportStepName, "export '"+e.Name()+"' failed", err, false, false)
		}
		stepExecution.ExecutionContext.Put("export."+e.Name(), n)
		stepExecution.WriteCount += n
		t.recorder.RecordRows(ctx, ExportStepName, "export_"+e.Name(), n)
		t.recorder.RecordDuration(ctx, "export", time.Since(started), map[string]string{"sink": e.Name()})
	}
	return model.ExitStatusCompleted, nil
}

func (t *ExportTasklet) exporters(ctx context.Context) ([]export.Exporter, error) {
	var exporters []export.Exporter

	files := []struct {
		cfg   config.FileExportConfig
		build func(conn export.Uploader, object string) export.Exporter
	}{
		{t.cfg.Parquet, func(conn export.Uploader, object string) export.Exporter {
			return export.NewParquetExporter(conn, object)
		}},
		{t.cfg.XLSX, func(conn export.Uploader, object string) export.Exporter {
			return export.NewXLSXExporter(conn, object, t.timeLayout)
		}},
		{t.cfg.Report, func(conn export.Uploader, object string) export.Exporter {
			return export.NewPDFReporter(conn, object)
		}},
	}
	for _, f := range files {
		if !f.cfg.Enabled {
			continue
		}
		conn, err := t.storage.Resolve(ctx, f.cfg.StorageRef)
		if err != nil {
			return nil, exception.NewBatchError(ExportStepName, "failed to resolve export storage", err, false, false)
		}
		exporters = append(exporters, f.build(conn, f.cfg.Object))
	}

	if db := t.cfg.Database; db.Enabled {
		conn, err := t.databases.GetConnection(db.DBRef)
		if err != nil {
			return nil, exception.NewBatchError(ExportStepName, "failed to open export database", err, false, false)
		}
		if err := t.migrations.Apply(conn); err != nil {
			return nil, exception.NewBatchError(ExportStepName, "failed to migrate export database", err, false, false)
		}
		exporters = append(exporters, export.NewDatabaseSink(conn.DB(), db.BatchSize))
	}
	return exporters, nil
}

// Close does nothing; connections are owned by their providers.
func (t *ExportTasklet) Close(ctx context.Context) error {
	return nil
}
