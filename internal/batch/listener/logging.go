// Package listener provides job and step listeners for logging and metrics.
package listener

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tigerroll/nisthourly/internal/batch/model"
	"github.com/tigerroll/nisthourly/internal/batch/port"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

type LoggingJobListener struct{}

func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %+v", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s", jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus)
	for _, f := range jobExecution.Failures {
		logger.Errorf("JobExecutionListener: failure - %s", f)
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// LoggingStepListener logs step boundaries and the counts recorded in the step ExecutionContext.
type LoggingStepListener struct{}

func NewLoggingStepListener() *LoggingStepListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s, Read: %d, Write: %d, Filter: %d",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus,
		stepExecution.ReadCount, stepExecution.WriteCount, stepExecution.FilterCount)
	if len(stepExecution.ExecutionContext) > 0 {
		logger.Debugf("StepExecutionListener: %s context - %s", stepExecution.StepName, formatContext(stepExecution.ExecutionContext))
	}
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

func formatContext(ec model.ExecutionContext) string {
	keys := make([]string, 0, len(ec))
	for k := range ec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ec[k]))
	}
	return strings.Join(parts, ", ")
}
