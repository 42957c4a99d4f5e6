package tasklet_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nisthourly/internal/adapter/database"
	"github.com/tigerroll/nisthourly/internal/adapter/storage"
	"github.com/tigerroll/nisthourly/internal/adapter/storage/local"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/step/tasklet"
	"github.com/tigerroll/nisthourly/internal/support/exception"
)

const weatherCSV = "TIMESTAMP,Pyra1_Wm2_Avg,SolarZenith_deg_Avg\n" +
	"2017-01-01 14:00:00,100,50\n" +
	"2017-01-01 14:30:00,200,50\n" +
	"2017-01-01 15:00:00,300,95\n" +
	"2017-01-01 15:30:00,400,60\n"

const groundCSV = "TIMESTAMP,InvPAC_kW_Avg\n" +
	"2017-01-01 14:00:00,1.0\n" +
	"2017-01-01 14:30:00,2.0\n" +
	"2017-01-01 15:00:00,3.0\n" +
	"2017-01-01 15:30:00,4.0\n"

// fixedResolver hands out the same connection for every name.
type fixedResolver struct {
	conn storage.Connection
}

func (r fixedResolver) Resolve(ctx context.Context, name string) (storage.Connection, error) {
	return r.conn, nil
}

type noDatabases struct{}

func (noDatabases) GetConnection(name string) (*database.Connection, error) {
	return nil, assert.AnError
}

func testConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		InputStorageRef:  "input",
		OutputStorageRef: "output",
		Year:             2017,
		Months:           []int{1},
		TimestampColumn:  "TIMESTAMP",
		SourceTimezone:   "UTC",
		Timezone:         "Etc/GMT+5",
		MissingPolicy:    "drop_hour",
		Weather: config.SourceConfig{
			Directory: "weather",
			Prefix:    "onemin-WS_1",
			Columns:   []config.ColumnMapping{{Source: "Pyra1_Wm2_Avg", Target: "GHI"}},
		},
		Ground: config.SourceConfig{
			Directory: "ground",
			Prefix:    "onemin-Ground",
			Columns:   []config.ColumnMapping{{Source: "InvPAC_kW_Avg", Target: "PAC_GND"}},
		},
		Filters: []config.FilterRuleConfig{
			{Name: config.CriterionNight, Source: "weather", Column: "SolarZenith_deg_Avg", Op: "gt", Threshold: 90},
			{Name: config.CriterionOutage, Source: "ground", Column: "InvPAC_kW_Avg", Op: "lt", Threshold: 0},
		},
		WeatherOutput: config.OutputFileConfig{
			FileName:   "weather_hourly.txt",
			Delimiter:  "\t",
			IndexName:  "Date/Time",
			TimeLayout: "2006-01-02 15:04:05",
			Columns:    []string{"GHI"},
		},
		GroundOutput: config.OutputFileConfig{
			FileName:   "ground_hourly.csv",
			Delimiter:  ",",
			IndexName:  "TIMESTAMP",
			TimeLayout: "2006-01-02 15:04:05-07:00",
			Columns:    []string{"GHI", "PAC_GND"},
		},
	}
}

func setup(t *testing.T) (string, fixedResolver) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"weather/onemin-WS_1-2017-01.csv":   weatherCSV,
		"ground/onemin-Ground-2017-01.csv": groundCSV,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	conn, err := local.NewLocalAdapter(storage.Config{Type: local.ProviderType, BaseDir: dir}, "test")
	require.NoError(t, err)
	return dir, fixedResolver{conn: conn}
}

func newStepExecution(name string) *model.StepExecution {
	je := model.NewJobExecution("nistHourlyJob", nil)
	je.MarkAsStarted()
	return model.NewStepExecution(name, je)
}

// TestTasklets_Pipeline runs load, filter, aggregate and write against local files.
func TestTasklets_Pipeline(t *testing.T) {
	ctx := context.Background()
	dir, resolver := setup(t)
	cfg := testConfig()
	ws := tasklet.NewWorkspace()
	recorder := metrics.NewNoOpMetricRecorder()

	load := newStepExecution(tasklet.LoadStepName)
	status, err := tasklet.NewLoadTasklet(cfg, resolver, ws, recorder).Execute(ctx, load)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	rows, _ := load.ExecutionContext.GetInt("weather.rows")
	assert.Equal(t, 4, rows)
	assert.Equal(t, 8, load.ReadCount)

	filter := newStepExecution(tasklet.FilterStepName)
	status, err = tasklet.NewFilterTasklet(cfg, ws, recorder, metrics.NewNoOpTracer()).Execute(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	night, _ := filter.ExecutionContext.GetInt("filter.night")
	assert.Equal(t, 1, night)
	assert.Equal(t, 2, filter.FilterCount)

	aggregate := newStepExecution(tasklet.AggregateStepName)
	status, err = tasklet.NewAggregateTasklet(cfg, ws, recorder).Execute(ctx, aggregate)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.Equal(t, 2, aggregate.WriteCount)

	write := newStepExecution(tasklet.WriteStepName)
	status, err = tasklet.NewWriteTasklet(cfg, resolver, ws, recorder).Execute(ctx, write)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	weather, err := os.ReadFile(filepath.Join(dir, "weather_hourly.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Date/Time\tGHI\n2017-01-01 09:00:00\t150.0\n2017-01-01 10:00:00\t400.0\n", string(weather))

	ground, err := os.ReadFile(filepath.Join(dir, "ground_hourly.csv"))
	require.NoError(t, err)
	assert.Equal(t, "TIMESTAMP,GHI,PAC_GND\n"+
		"2017-01-01 09:00:00-05:00,150.0,1.5\n"+
		"2017-01-01 10:00:00-05:00,400.0,4.0\n", string(ground))

	summary := ws.Summary()
	assert.Equal(t, map[string]int{"night": 1, "outage": 0}, summary.CriterionCounts)
}

// TestLoadTasklet_MissingMonth reports every absent monthly file of both sources in one error.
func TestLoadTasklet_MissingMonth(t *testing.T) {
	_, resolver := setup(t)
	cfg := testConfig()
	cfg.Months = []int{1, 2, 3}

	se := newStepExecution(tasklet.LoadStepName)
	status, err := tasklet.NewLoadTasklet(cfg, resolver, tasklet.NewWorkspace(), metrics.NewNoOpMetricRecorder()).
		Execute(context.Background(), se)
	require.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
	assert.True(t, exception.IsBatchError(err))
	for _, name := range []string{
		"weather/onemin-WS_1-2017-02.csv", "weather/onemin-WS_1-2017-03.csv",
		"ground/onemin-Ground-2017-02.csv", "ground/onemin-Ground-2017-03.csv",
	} {
		assert.Contains(t, err.Error(), name)
	}
	assert.NotContains(t, err.Error(), "2017-01.csv")
	missing, _ := se.ExecutionContext.GetInt("missing.files")
	assert.Equal(t, 4, missing)
	assert.Zero(t, se.ReadCount)
}

// TestFilterTasklet_StrictAlignment fails when the sources do not share their timestamps.
func TestFilterTasklet_StrictAlignment(t *testing.T) {
	ctx := context.Background()
	dir, resolver := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ground/onemin-Ground-2017-01.csv"),
		[]byte("TIMESTAMP,InvPAC_kW_Avg\n2017-01-01 14:00:00,1.0\n"), 0644))
	cfg := testConfig()
	ws := tasklet.NewWorkspace()
	recorder := metrics.NewNoOpMetricRecorder()

	_, err := tasklet.NewLoadTasklet(cfg, resolver, ws, recorder).Execute(ctx, newStepExecution(tasklet.LoadStepName))
	require.NoError(t, err)

	lenient := newStepExecution(tasklet.FilterStepName)
	status, err := tasklet.NewFilterTasklet(cfg, ws, recorder, metrics.NewNoOpTracer()).Execute(ctx, lenient)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	weatherOnly, _ := lenient.ExecutionContext.GetInt("alignment.weather_only")
	assert.Equal(t, 3, weatherOnly)

	_, err = tasklet.NewLoadTasklet(cfg, resolver, ws, recorder).Execute(ctx, newStepExecution(tasklet.LoadStepName))
	require.NoError(t, err)
	cfg.StrictAlignment = true
	status, err = tasklet.NewFilterTasklet(cfg, ws, recorder, metrics.NewNoOpTracer()).Execute(ctx, newStepExecution(tasklet.FilterStepName))
	require.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
}

// TestExportTasklet_NoSinks ends with NO_OP when every sink is disabled.
func TestExportTasklet_NoSinks(t *testing.T) {
	ctx := context.Background()
	_, resolver := setup(t)
	cfg := testConfig()
	ws := tasklet.NewWorkspace()
	recorder := metrics.NewNoOpMetricRecorder()

	for _, run := range []func() error{
		func() error {
			_, err := tasklet.NewLoadTasklet(cfg, resolver, ws, recorder).Execute(ctx, newStepExecution(tasklet.LoadStepName))
			return err
		},
		func() error {
			_, err := tasklet.NewFilterTasklet(cfg, ws, recorder, metrics.NewNoOpTracer()).Execute(ctx, newStepExecution(tasklet.FilterStepName))
			return err
		},
		func() error {
			_, err := tasklet.NewAggregateTasklet(cfg, ws, recorder).Execute(ctx, newStepExecution(tasklet.AggregateStepName))
			return err
		},
	} {
		require.NoError(t, run())
	}

	exp := tasklet.NewExportTasklet(&config.ExportConfig{}, cfg.GroundOutput.TimeLayout, resolver, noDatabases{},
		database.MigrationSource{}, ws, recorder)
	status, err := exp.Execute(ctx, newStepExecution(tasklet.ExportStepName))
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusNoOp, status)
}

// TestExportTasklet_FileSinks writes parquet, workbook and report objects.
func TestExportTasklet_FileSinks(t *testing.T) {
	ctx := context.Background()
	dir, resolver := setup(t)
	cfg := testConfig()
	ws := tasklet.NewWorkspace()
	recorder := metrics.NewNoOpMetricRecorder()

	_, err := tasklet.NewLoadTasklet(cfg, resolver, ws, recorder).Execute(ctx, newStepExecution(tasklet.LoadStepName))
	require.NoError(t, err)
	_, err = tasklet.NewFilterTasklet(cfg, ws, recorder, metrics.NewNoOpTracer()).Execute(ctx, newStepExecution(tasklet.FilterStepName))
	require.NoError(t, err)
	_, err = tasklet.NewAggregateTasklet(cfg, ws, recorder).Execute(ctx, newStepExecution(tasklet.AggregateStepName))
	require.NoError(t, err)

	exportCfg := &config.ExportConfig{
		Parquet: config.FileExportConfig{Enabled: true, StorageRef: "output", Object: "hourly.parquet"},
		XLSX:    config.FileExportConfig{Enabled: true, StorageRef: "output", Object: "hourly.xlsx"},
		Report:  config.FileExportConfig{Enabled: true, StorageRef: "output", Object: "report.pdf"},
	}
	se := newStepExecution(tasklet.ExportStepName)
	status, err := tasklet.NewExportTasklet(exportCfg, cfg.GroundOutput.TimeLayout, resolver, noDatabases{},
		database.MigrationSource{}, ws, recorder).Execute(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	observations, _ := se.ExecutionContext.GetInt("export.parquet")
	assert.Equal(t, 4, observations)
	months, _ := se.ExecutionContext.GetInt("export.report")
	assert.Equal(t, 1, months)
	for _, name := range []string{"hourly.parquet", "hourly.xlsx", "report.pdf"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

// TestWriteTasklet_RerunIsByteIdentical runs the whole pipeline twice into separate
// output directories and compares the written files.
func TestWriteTasklet_RerunIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	dir, input := setup(t)
	cfg := testConfig()
	recorder := metrics.NewNoOpMetricRecorder()

	runOnce := func(outDir string) {
		out, err := local.NewLocalAdapter(storage.Config{Type: local.ProviderType, BaseDir: outDir}, "output")
		require.NoError(t, err)
		ws := tasklet.NewWorkspace()
		_, err = tasklet.NewLoadTasklet(cfg, input, ws, recorder).Execute(ctx, newStepExecution(tasklet.LoadStepName))
		require.NoError(t, err)
		_, err = tasklet.NewFilterTasklet(cfg, ws, recorder, metrics.NewNoOpTracer()).Execute(ctx, newStepExecution(tasklet.FilterStepName))
		require.NoError(t, err)
		_, err = tasklet.NewAggregateTasklet(cfg, ws, recorder).Execute(ctx, newStepExecution(tasklet.AggregateStepName))
		require.NoError(t, err)
		_, err = tasklet.NewWriteTasklet(cfg, fixedResolver{conn: out}, ws, recorder).Execute(ctx, newStepExecution(tasklet.WriteStepName))
		require.NoError(t, err)
	}
	first, second := filepath.Join(dir, "run1"), filepath.Join(dir, "run2")
	runOnce(first)
	runOnce(second)

	for _, name := range []string{cfg.WeatherOutput.FileName, cfg.GroundOutput.FileName} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.NotEmpty(t, a)
		assert.True(t, bytes.Equal(a, b), name)
	}
}

// TestRequiredColumns lists projected columns first, then filter columns of the source.
func TestRequiredColumns(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, []string{"Pyra1_Wm2_Avg", "SolarZenith_deg_Avg"},
		tasklet.RequiredColumns(cfg.Weather, cfg.Filters, "weather"))
	assert.Equal(t, []string{"InvPAC_kW_Avg"},
		tasklet.RequiredColumns(cfg.Ground, cfg.Filters, "ground"))
}
