// Package job runs a sequence of steps as one job execution.
package job

import (
	"context"

	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/batch/repository"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// SimpleJob executes its steps in order and stops at the first failure.
type SimpleJob struct {
	name          string
	steps         []port.Step
	jobRepository repository.JobRepository
}

// NewSimpleJob creates a SimpleJob.
func NewSimpleJob(name string, steps []port.Step, jobRepository repository.JobRepository) *SimpleJob {
	return &SimpleJob{name: name, steps: steps, jobRepository: jobRepository}
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// Run executes every step. It returns ctx.Err() when cancelled between steps.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution) error {
	for _, s := range j.steps {
		select {
		case <-ctx.Done():
			logger.Warnf("Job '%s' cancelled before step '%s'.", j.name, s.StepName())
			return ctx.Err()
		default:
		}

		jobExecution.CurrentStepName = s.StepName()
		stepExecution := model.NewStepExecution(s.StepName(), jobExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			return exception.NewBatchError(j.name, "failed to save StepExecution for "+s.StepName(), err, false, false)
		}

		if err := s.Execute(ctx, jobExecution, stepExecution); err != nil {
			return err
		}
		// Steps may complete with a non-COMPLETED exit status; only failure stops the flow.
		if stepExecution.Status == model.BatchStatusFailed {
			return exception.NewBatchErrorf(j.name, "step '%s' failed", s.StepName())
		}
	}
	return nil
}

var _ port.Job = (*SimpleJob)(nil)
