// Package job assembles nistHourlyJob from the pipeline tasklets.
package job

import (
	"go.uber.org/fx"

	batchjob "github.com/tigerroll/nisthourly/internal/batch/job"
	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/batch/repository"
	"github.com/tigerroll/nisthourly/internal/batch/step"
	"github.com/tigerroll/nisthourly/internal/config"
	"github.com/tigerroll/nisthourly/internal/step/tasklet"
)

// Params collects the tasklets and engine components of the job.
type Params struct {
	fx.In
	Config        *config.Config
	Repository    repository.JobRepository
	StepListeners []port.StepExecutionListener `group:"step_listeners"`
	Tracer        metrics.Tracer

	Load      *tasklet.LoadTasklet
	Filter    *tasklet.FilterTasklet
	Aggregate *tasklet.AggregateTasklet
	Write     *tasklet.WriteTasklet
	Export    *tasklet.ExportTasklet
}

// NewNistHourlyJob runs load, filter, aggregate, write and export in that order.
// The job is named by batch.job_name.
func NewNistHourlyJob(p Params) port.Job {
	newStep := func(name string, t port.Tasklet) port.Step {
		return step.NewTaskletStep(name, t, p.Repository, p.StepListeners, p.Tracer)
	}
	steps := []port.Step{
		newStep(tasklet.LoadStepName, p.Load),
		newStep(tasklet.FilterStepName, p.Filter),
		newStep(tasklet.AggregateStepName, p.Aggregate),
		newStep(tasklet.WriteStepName, p.Write),
		newStep(tasklet.ExportStepName, p.Export),
	}
	return batchjob.NewSimpleJob(p.Config.NistHourly.Batch.JobName, steps, p.Repository)
}

// Module provides the job.
var Module = fx.Options(
	fx.Provide(NewNistHourlyJob),
)
