// Package logger provides structured logging for prockit built on zerolog.
//
// It supports console and JSON output, per-instance and global loggers,
// and field helpers for process-lifecycle events (pid, binary, exit code,
// stage index, run id).
package logger
