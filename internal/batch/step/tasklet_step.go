// Package step provides the tasklet step used by every step of the job.
package step

import (
	"context"
	"errors"

	"github.com/tigerroll/nisthourly/internal/batch/metrics"
	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/batch/repository"
	"github.com/tigerroll/nisthourly/internal/support/exception"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// TaskletStep runs a single Tasklet and records the outcome on its StepExecution.
type TaskletStep struct {
	name          string
	tasklet       port.Tasklet
	jobRepository repository.JobRepository
	listeners     []port.StepExecutionListener
	tracer        metrics.Tracer
}

// NewTaskletStep creates a TaskletStep. A nil tracer disables tracing.
func NewTaskletStep(
	name string,
	tasklet port.Tasklet,
	jobRepository repository.JobRepository,
	listeners []port.StepExecutionListener,
	tracer metrics.Tracer,
) *TaskletStep {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &TaskletStep{
		name:          name,
		tasklet:       tasklet,
		jobRepository: jobRepository,
		listeners:     listeners,
		tracer:        tracer,
	}
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.name
}

// Execute runs the tasklet. A tasklet error fails the step unless the context
// was cancelled, in which case the step is stopped.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	logger.Infof("TaskletStep '%s' executing.", s.name)

	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()

	stepExecution.MarkAsStarted()
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError(s.name, "Failed to update StepExecution status to STARTED", err, false, false)
	}

	for _, l := range s.listeners {
		l.BeforeStep(ctx, stepExecution)
	}

	exitStatus, err := s.tasklet.Execute(ctx, stepExecution)

	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to close Tasklet: %v", s.name, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		logger.Warnf("TaskletStep '%s' stopped: %v", s.name, err)
		stepExecution.MarkAsStopped()
		stepExecution.AddFailureException(err)
	case err != nil:
		s.tracer.RecordError(ctx, s.name, err)
		stepExecution.MarkAsFailed(err)
	default:
		stepExecution.MarkAsCompleted(exitStatus)
	}

	for _, l := range s.listeners {
		l.AfterStep(ctx, stepExecution)
	}

	if updateErr := s.jobRepository.UpdateStepExecution(ctx, stepExecution); updateErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to update final StepExecution state: %v", s.name, updateErr)
		if err == nil {
			err = updateErr
		}
	}

	logger.Infof("TaskletStep '%s' finished. ExitStatus: %s", s.name, stepExecution.ExitStatus)
	return err
}

var _ port.Step = (*TaskletStep)(nil)
