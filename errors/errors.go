package errors

import (
	"errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns an empty code if err is nil or carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether the error chain contains an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// --- Common Error Constructors ---

// InvalidConfiguration creates a new AppError for a command or pipeline
// that can never execute as configured.
func InvalidConfiguration(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidConfiguration, Message: fmt.Sprintf("Invalid configuration: %s", reason),
		Retryable: false, Details: details,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Retryable: false,
		Details:   map[string]any{"field": field},
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfiguration, Message: message,
		Retryable: false,
	}
}

// AlreadyRunning creates a new AppError for a spawn or terminate sequencing misuse.
func AlreadyRunning(binary string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyRunning, Message: fmt.Sprintf("A process for %q is already running.", binary),
		Retryable: false,
		Details:   map[string]any{"binary": binary},
	}
}

// PipelineBusy creates a new AppError for executing an already-executing pipeline.
func PipelineBusy() *AppError {
	return &AppError{
		Code: ErrCodePipelineBusy, Message: "The pipeline has already been executed.",
		Retryable: false,
	}
}

// SpawnFailure creates a new AppError for an OS-level process-creation error.
func SpawnFailure(binary string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSpawnFailure, Message: fmt.Sprintf("Failed to spawn process for %q.", binary),
		Retryable: true, Cause: cause,
		Details: map[string]any{"binary": binary},
	}
}

// PipelineSpawnFailure creates a new AppError identifying the pipeline
// stage that failed to spawn. Prior stages have already been terminated
// by the time this error is surfaced.
func PipelineSpawnFailure(stage int, binary string, cause error) *AppError {
	return &AppError{
		Code: ErrCodePipelineSpawnFailure, Message: fmt.Sprintf("Pipeline stage %d (%q) failed to spawn.", stage, binary),
		Retryable: true, Cause: cause,
		Details: map[string]any{"stage": stage, "binary": binary},
	}
}

// TerminateFailure creates a new AppError for a failed termination-signal delivery.
func TerminateFailure(binary string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTerminateFailure, Message: fmt.Sprintf("Failed to deliver termination signal to %q.", binary),
		Retryable: true, Cause: cause,
		Details: map[string]any{"binary": binary},
	}
}

// BrokenPipeline creates a new AppError for a broken producer/consumer chain.
func BrokenPipeline(stage int) *AppError {
	return &AppError{
		Code: ErrCodeBrokenPipeline, Message: fmt.Sprintf("Pipeline is broken around stage %d.", stage),
		Retryable: false,
		Details:   map[string]any{"stage": stage},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Retryable: false, Cause: cause,
	}
}
