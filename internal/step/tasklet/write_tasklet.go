package tasklet

import (
	"bytes"
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

var _ port.Tasklet = (*WriteTasklet)(nil)

// WriteTasklet writes the weather and ground delimited files.
type WriteTasklet struct {
	cfg       *config.PipelineConfig
	resolver  StorageResolver
	workspace *Workspace
	recorder  metrics.MetricRecorder
}

// NewWriteTasklet creates a WriteTasklet.
func NewWriteTasklet(cfg *config.PipelineConfig, resolver StorageResolver, workspace *Workspace, recorder metrics.MetricRecorder) *WriteTasklet {
	return &WriteTasklet{cfg: cfg, resolver: resolver, workspace: workspace, recorder: recorder}
}

// Execute writes both files through the output storage.
func (t *WriteTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	started := time.Now()
	hourly := t.workspace.Hourly()
	if hourly == nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf(WriteStepName, "no hourly table in workspace")
	}
	conn, err := t.resolver.Resolve(ctx, t.cfg.OutputStorageRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(WriteStepName, "failed to resolve output storage", err, false, false)
	}

	stepExecution.ReadCount = hourly.Len()
	for _, out := range []config.OutputFileConfig{t.cfg.WeatherOutput, t.cfg.GroundOutput} {
		select {
		case <-ctx.Done():
			return model.ExitStatusStopped, ctx.Err()
		default:
		}

		format, err := pipeline.NewOutputFormat(out.Delimiter, out.IndexName, out.TimeLayout, out.Columns)
		if err != nil {
			return model.ExitStatusFailed, exception.NewBatchErrorf(WriteStepName, "invalid output format for %s: %v", out.FileName, err)
		}
		data, err := pipeline.EncodeDelimited(hourly, format)
		if err != nil {
			return model.ExitStatusFailed, exception.NewBatchErrorf(WriteStepName, "failed to encode %s: %v", out.FileName, err)
		}
		if err := conn.Upload(ctx, "", out.FileName, bytes.NewReader(data), "text/csv"); err != nil {
			return model.ExitStatusFailed, exception.NewBatchErrorf(WriteStepName, "failed to write %s: %v", out.FileName, err)
		}

		stepExecution.ExecutionContext.Put("output."+out.FileName, len(data))
		stepExecution.WriteCount += hourly.Len()
		t.recorder.RecordRows(ctx, WriteStepName, "written", hourly.Len())
		logger.Infof("Wrote %d hourly rows to '%s' (%d bytes).", hourly.Len(), out.FileName, len(data))
	}

	t.recorder.RecordDuration(ctx, "write", time.Since(started), nil)
	return model.ExitStatusCompleted, nil
}

// Close does nothing; connections are owned by the storage resolver.
func (t *WriteTasklet) Close(ctx context.Context) error {
	return nil
}
