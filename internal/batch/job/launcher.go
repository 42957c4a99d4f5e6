package job

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

// JobLauncher creates a JobExecution, runs the job synchronously and records the outcome.
type JobLauncher struct {
	jobRepository repository.JobRepository
	listeners     []port.JobExecutionListener
	tracer        metrics.Tracer
}

// NewJobLauncher creates a JobLauncher. A nil tracer disables tracing.
func NewJobLauncher(jobRepository repository.JobRepository, listeners []port.JobExecutionListener, tracer metrics.Tracer) *JobLauncher {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &JobLauncher{jobRepository: jobRepository, listeners: listeners, tracer: tracer}
}

// Launch runs job to completion. The returned JobExecution is always non-nil
// once it has been saved; its Status tells COMPLETED, FAILED or STOPPED apart.
func (l *JobLauncher) Launch(ctx context.Context, job port.Job, params model.JobParameters) (*model.JobExecution, error) {
	jobExecution := model.NewJobExecution(job.JobName(), params)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewBatchError("launcher", "failed to save JobExecution", err, false, false)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobExecution.CancelFunc = cancel

	ctx, endSpan := l.tracer.StartJobSpan(ctx, jobExecution)
	defer endSpan()

	logger.Infof("Job '%s' (ID: %s) starting.", job.JobName(), jobExecution.ID)
	jobExecution.MarkAsStarted()
	if err := l.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobLauncher: Failed to update JobExecution (ID: %s) status to STARTED: %v", jobExecution.ID, err)
	}

	for _, listener := range l.listeners {
		listener.BeforeJob(ctx, jobExecution)
	}

	runErr := job.Run(ctx, jobExecution)
	switch {
	case runErr == nil:
		jobExecution.MarkAsCompleted()
	case errors.Is(runErr, context.Canceled) || ctx.Err() != nil || lastStepStopped(jobExecution):
		jobExecution.MarkAsStopped()
		jobExecution.AddFailureException(runErr)
	default:
		l.tracer.RecordError(ctx, job.JobName(), runErr)
		jobExecution.MarkAsFailed(runErr)
	}

	for _, listener := range l.listeners {
		listener.AfterJob(ctx, jobExecution)
	}

	if err := l.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobLauncher: Failed to update final JobExecution (ID: %s) state: %v", jobExecution.ID, err)
	}

	logger.Infof("Job '%s' (ID: %s) finished with status %s in %s.", job.JobName(), jobExecution.ID, jobExecution.Status, jobExecution.Duration())
	return jobExecution, runErr
}

func lastStepStopped(je *model.JobExecution) bool {
	if len(je.StepExecutions) == 0 {
		return false
	}
	return je.StepExecutions[len(je.StepExecutions)-1].Status == model.BatchStatusStopped
}
