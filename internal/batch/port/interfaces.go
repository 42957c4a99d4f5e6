// Package port defines the interfaces the batch engine is assembled from.
package port

import (
	"context"

	"github.com/tigerroll/nisthourly/internal/batch/model"
)

// Job is an executable batch job.
type Job interface {
	// Run executes the job flow and returns the first fatal error.
	Run(ctx context.Context, jobExecution *model.JobExecution) error
	// JobName returns the logical name of the job.
	JobName() string
}

// Step is a single unit of work executed within a job.
type Step interface {
	// Execute runs the step against stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
}

// Tasklet holds the business logic of a tasklet step.
type Tasklet interface {
	// Execute performs the work and returns the exit status of the step.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources held by the tasklet.
	Close(ctx context.Context) error
}

// JobExecutionListener is notified around a job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// StepExecutionListener is notified around a step execution.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}
