// Package errors provides unified error handling for prockit.
// It implements structured error types with machine-readable codes,
// retryable detection, and cause chaining for process-lifecycle and
// pipeline-orchestration failures.
package errors
