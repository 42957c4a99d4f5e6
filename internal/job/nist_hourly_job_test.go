package job_test

import (
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
	batchjob "github.com/tigerroll/nisthourly/internal/batch/job"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/repository/inmemory"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/job"
	"github.com/tigerroll/nisthourly/internal/step/tasklet"
)

func writeInputs(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"onemin-WS_1-2017/onemin-WS_1-2017-01.csv": "TIMESTAMP,Pyra1_Wm2_Avg,Pyrad1_Wm2_Avg,AirTemp_C_Avg,WindSpeedAve_ms,SolarAzFromSouth_deg_Avg,SolarZenith_deg_Avg\n" +
			"2017-01-01 14:00:00,100,40,5,2,10,60\n" +
			"2017-01-01 14:30:00,300,60,7,4,12,58\n",
		"onemin-Ground-2017/onemin-Ground-2017-01.csv": "TIMESTAMP,Pyra1_Wm2_Avg,Pyra2_Wm2_Avg,AmbTemp_C_Avg,InvPDC_kW_Avg,InvPAC_kW_Avg,InvVDCin_Avg,InvIDCin_Avg,InvVPVin_Avg\n" +
			"2017-01-01 14:00:00,101,120,6,1.0,0.9,300,3,310\n" +
			"2017-01-01 14:30:00,299,320,8,3.0,2.9,320,9,330\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

type fixedResolver struct{ conn storage.Connection }

func (r fixedResolver) Resolve(ctx context.Context, name string) (storage.Connection, error) {
	return r.conn, nil
}

type noDatabases struct{}

func (noDatabases) GetConnection(name string) (*database.Connection, error) {
	return nil, assert.AnError
}

// TestNistHourlyJob_RunsStepsInOrder launches the assembled job on one month of data.
func TestNistHourlyJob_RunsStepsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	conn, err := local.NewLocalAdapter(storage.Config{Type: local.ProviderType, BaseDir: dir}, "test")
	require.NoError(t, err)
	resolver := fixedResolver{conn: conn}

	cfg := config.NewConfig()
	cfg.NistHourly.Pipeline.Months = []int{1}
	pipelineCfg := &cfg.NistHourly.Pipeline
	repo := inmemory.NewInMemoryJobRepository()
	recorder := metrics.NewNoOpMetricRecorder()
	tracer := metrics.NewNoOpTracer()
	ws := tasklet.NewWorkspace()

	nistJob := job.NewNistHourlyJob(job.Params{
		Config:     cfg,
		Repository: repo,
		Tracer:     tracer,
		Load:       tasklet.NewLoadTasklet(pipelineCfg, resolver, ws, recorder),
		Filter:     tasklet.NewFilterTasklet(pipelineCfg, ws, recorder, tracer),
		Aggregate:  tasklet.NewAggregateTasklet(pipelineCfg, ws, recorder),
		Write:      tasklet.NewWriteTasklet(pipelineCfg, resolver, ws, recorder),
		Export: tasklet.NewExportTasklet(&cfg.NistHourly.Export, pipelineCfg.GroundOutput.TimeLayout,
			resolver, noDatabases{}, database.MigrationSource{}, ws, recorder),
	})
	assert.Equal(t, "nistHourlyJob", nistJob.JobName())

	execution, err := batchjob.NewJobLauncher(repo, nil, tracer).Launch(context.Background(), nistJob, model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, execution.Status)

	var names []string
	for _, se := range execution.StepExecutions {
		names = append(names, se.StepName)
	}
	assert.Equal(t, []string{
		tasklet.LoadStepName, tasklet.FilterStepName, tasklet.AggregateStepName,
		tasklet.WriteStepName, tasklet.ExportStepName,
	}, names)
	assert.Equal(t, model.ExitStatusNoOp, execution.StepExecutions[4].ExitStatus)

	weather, err := os.ReadFile(filepath.Join(dir, "NIST_weather_hourly.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Date/Time\tGHI\tDIF\tTemp\tWS\n2017-01-01 09:00:00\t200.0\t50.0\t6.0\t3.0\n", string(weather))
	assert.FileExists(t, filepath.Join(dir, "NIST_ground_hourly.csv"))
}
