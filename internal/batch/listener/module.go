package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/batch/port"
)

// Group tags collecting the listeners of every job and step.
const (
	JobListenerGroup  = `group:"job_listeners"`
	StepListenerGroup = `group:"step_listeners"`
)

// Module registers the logging and metrics listeners in their groups.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewLoggingJobListener, fx.As(new(port.JobExecutionListener)), fx.ResultTags(JobListenerGroup)),
		fx.Annotate(NewMetricsJobListener, fx.As(new(port.JobExecutionListener)), fx.ResultTags(JobListenerGroup)),
		fx.Annotate(NewLoggingStepListener, fx.As(new(port.StepExecutionListener)), fx.ResultTags(StepListenerGroup)),
		fx.Annotate(NewMetricsStepListener, fx.As(new(port.StepExecutionListener)), fx.ResultTags(StepListenerGroup)),
	),
)
