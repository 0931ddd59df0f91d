package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeInvalidConfiguration indicates a command or pipeline was
	// configured in a way that can never execute (e.g. empty binary path).
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	// ErrCodeMissingField indicates a required configuration field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Lifecycle-sequencing errors
const (
	// ErrCodeAlreadyRunning indicates a spawn was attempted while a live
	// process is already owned, or two spawns raced on the same command.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"
	// ErrCodePipelineBusy indicates execute was called on a pipeline that
	// has already started executing.
	ErrCodePipelineBusy ErrorCode = "PIPELINE_BUSY"
)

// Spawn errors
const (
	// ErrCodeSpawnFailure indicates the OS failed to create the child
	// process. Carries the underlying OS error as the cause.
	ErrCodeSpawnFailure ErrorCode = "SPAWN_FAILURE"
	// ErrCodePipelineSpawnFailure indicates a pipeline stage failed to
	// spawn; prior stages have been terminated.
	ErrCodePipelineSpawnFailure ErrorCode = "PIPELINE_SPAWN_FAILURE"
)

// Runtime errors
const (
	// ErrCodeTerminateFailure indicates the termination signal could not
	// be delivered to a live process.
	ErrCodeTerminateFailure ErrorCode = "TERMINATE_FAILURE"
	// ErrCodeBrokenPipeline indicates a mid-chain stage exited while an
	// upstream producer or downstream consumer was still running.
	ErrCodeBrokenPipeline ErrorCode = "BROKEN_PIPELINE"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSpawnFailure:         true,
	ErrCodePipelineSpawnFailure: true,
	ErrCodeTerminateFailure:     true,
	ErrCodeInternal:             false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
