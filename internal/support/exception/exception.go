// Package exception provides the error type shared by the batch engine and the pipeline steps.
// A BatchError records the component that failed and whether the failure may be retried or skipped.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// BatchError is an error raised while running a job or one of its steps.
type BatchError struct {
	// Module is the component that raised the error (e.g. "loadStep", "config", "storage").
	Module string
	// Message is a short description of the failure.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// cause is reachable through Unwrap but not repeated by Error.
	cause error
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError creates a BatchError.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a non-retryable, non-skippable BatchError with a formatted message.
// When the last argument is an error it is also kept as the wrapped cause, so errors.Is sees it.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var cause error
	if n := len(a); n > 0 {
		if err, ok := a[n-1].(error); ok {
			cause = err
		}
	}
	be := NewBatchError(module, fmt.Sprintf(format, a...), nil, false, false)
	be.cause = cause
	return be
}

// Error returns "[module] message: cause".
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error.
func (e *BatchError) Unwrap() error {
	if e.OriginalErr != nil {
		return e.OriginalErr
	}
	return e.cause
}

// IsRetryable reports whether the failed operation may be retried.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable reports whether the failed item may be skipped.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err or any error it wraps is a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsFatal reports whether err can be neither retried nor skipped.
// Errors that are not BatchErrors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	return true
}

// ExtractErrorMessage returns the Message of the outermost BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		if be.OriginalErr != nil {
			return be.Message + ": " + be.OriginalErr.Error()
		}
		return be.Message
	}
	return err.Error()
}
