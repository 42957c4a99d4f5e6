package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/nisthourly/internal/batch/model"
)

// TestJobExecution_Lifecycle walks a job execution from STARTING to COMPLETED.
func TestJobExecution_Lifecycle(t *testing.T) {
	je := model.NewJobExecution("nistHourlyJob", nil)
	assert.NotEmpty(t, je.ID)
	assert.Equal(t, model.BatchStatusStarting, je.Status)
	assert.NotNil(t, je.Parameters)

	je.MarkAsStarted()
	assert.Equal(t, model.BatchStatusStarted, je.Status)

	je.MarkAsCompleted()
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	assert.NotNil(t, je.EndTime)
	assert.True(t, je.Status.IsFinished())
}

// TestJobExecution_InvalidTransition rejects leaving a terminal state.
func TestJobExecution_InvalidTransition(t *testing.T) {
	je := model.NewJobExecution("job", nil)
	je.MarkAsStarted()
	je.MarkAsCompleted()
	assert.Error(t, je.TransitionTo(model.BatchStatusStarted))
}

// TestJobExecution_FailureDeduplication records each failure message once.
func TestJobExecution_FailureDeduplication(t *testing.T) {
	je := model.NewJobExecution("job", nil)
	je.MarkAsStarted()
	err := errors.New("boom")
	je.MarkAsFailed(err)
	je.AddFailureException(err)
	je.AddFailureException(nil)

	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.Equal(t, []string{"boom"}, je.Failures)
}

// TestStepExecution_AttachesToJob verifies step executions are registered on their job.
func TestStepExecution_AttachesToJob(t *testing.T) {
	je := model.NewJobExecution("job", nil)
	se := model.NewStepExecution("loadStep", je)

	assert.Equal(t, je.ID, se.JobExecutionID)
	assert.Same(t, je, se.JobExecution)
	assert.Len(t, je.StepExecutions, 1)

	se.MarkAsStarted()
	se.MarkAsCompleted("")
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)
	assert.GreaterOrEqual(t, se.Duration().Nanoseconds(), int64(0))
}

// TestJobStatus_ToExitStatus maps statuses to exit statuses.
func TestJobStatus_ToExitStatus(t *testing.T) {
	assert.Equal(t, model.ExitStatusStopped, model.BatchStatusStopped.ToExitStatus())
	assert.Equal(t, model.ExitStatusUnknown, model.BatchStatusStarted.ToExitStatus())
	assert.False(t, model.BatchStatusStarted.IsFinished())
}

// TestExecutionContext_TypedGetters covers numeric conversions and copying.
func TestExecutionContext_TypedGetters(t *testing.T) {
	ec := model.NewExecutionContext()
	ec.Put("rows", 42)
	ec.Put("ratio", 0.5)
	ec.Put("file", "NIST_weather_hourly.txt")

	rows, ok := ec.GetInt("rows")
	assert.True(t, ok)
	assert.Equal(t, 42, rows)

	f, ok := ec.GetFloat64("rows")
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)

	s, ok := ec.GetString("file")
	assert.True(t, ok)
	assert.Equal(t, "NIST_weather_hourly.txt", s)

	_, ok = ec.GetInt("file")
	assert.False(t, ok)

	cp := ec.Copy()
	cp.Remove("rows")
	_, stillThere := ec.Get("rows")
	assert.True(t, stillThere)
}
