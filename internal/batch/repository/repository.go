// Package repository stores job and step executions.
package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/nisthourly/internal/batch/model"
)

var (
	// ErrJobExecutionNotFound is returned when no JobExecution has the requested ID.
	ErrJobExecutionNotFound = errors.New("job execution not found")
	// ErrStepExecutionNotFound is returned when no StepExecution has the requested ID.
	ErrStepExecutionNotFound = errors.New("step execution not found")
)

// JobRepository persists the state of job and step executions.
type JobRepository interface {
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
	FindJobExecutionsByJobName(ctx context.Context, jobName string) ([]*model.JobExecution, error)

	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)

	// Close releases resources held by the repository.
	Close() error
}
