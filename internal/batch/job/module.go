package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/batch/repository"
)

// LauncherParams collects the dependencies of the JobLauncher.
type LauncherParams struct {
	fx.In
	Repository repository.JobRepository
	Listeners  []port.JobExecutionListener `group:"job_listeners"`
	Tracer     metrics.Tracer
}

// NewJobLauncherFromParams builds the JobLauncher with every registered job listener.
func NewJobLauncherFromParams(p LauncherParams) *JobLauncher {
	return NewJobLauncher(p.Repository, p.Listeners, p.Tracer)
}

// Module provides the JobLauncher.
var Module = fx.Options(
	fx.Provide(NewJobLauncherFromParams),
)
