package saga

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeExecution         = "EXECUTION_ERROR"
	ErrCodeTimeout           = "TIMEOUT_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeStepFailed        = "STEP_FAILED"
	ErrCodeAssertionFailed   = "ASSERTION_FAILED"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeProbe             = "PROBE_ERROR"
	ErrCodeEvaluator         = "EVALUATOR_ERROR"
	ErrCodeMailbox           = "MAILBOX_ERROR"
	ErrCodeStore             = "STORE_ERROR"
)

// SagaError is the structured error type for all engine operations.
type SagaError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	StepKey string         `json:"stepKey,omitempty"`
	Cause   error          `json:"-"`
}

func (e *SagaError) Error() string {
	if e.StepKey != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.StepKey, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *SagaError) Unwrap() error {
	return e.Cause
}

// NewError creates a new SagaError.
func NewError(code, message string) *SagaError {
	return &SagaError{Code: code, Message: message}
}

// NewErrorf creates a new SagaError with a formatted message.
func NewErrorf(code, format string, args ...any) *SagaError {
	return &SagaError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step key to the error.
func (e *SagaError) WithStep(stepKey string) *SagaError {
	e.StepKey = stepKey
	return e
}

// WithCause attaches an underlying cause.
func (e *SagaError) WithCause(err error) *SagaError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *SagaError) WithDetails(details map[string]any) *SagaError {
	e.Details = details
	return e
}

// IsCode reports whether err is (or wraps) a SagaError with the given code.
func IsCode(err error, code string) bool {
	var se *SagaError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// CodeOf returns the error's code, or ErrCodeExecution for foreign errors.
func CodeOf(err error) string {
	var se *SagaError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeExecution
}
