package process

import (
	"os"
	"path/filepath"
	"time"
)

// streamMode selects where a child's standard stream goes.
type streamMode int

const (
	// modeInherit leaves the stream attached to the parent's descriptor.
	modeInherit streamMode = iota
	// modeLogFile redirects the stream to a timestamped log file.
	modeLogFile
)

// streamPolicy is the redirection policy for one standard stream.
// A pipeline connector, when present, always takes precedence over the
// policy for the same stream.
type streamPolicy struct {
	mode   streamMode
	prefix string
}

const logTimestampFormat = "20060102150405"

// logFileName builds `{prefix}_{arg0}_{timestamp}.{stream}.log`; the
// leading `{prefix}_` segment is omitted when prefix is empty.
func logFileName(prefix, arg0, stream string, now time.Time) string {
	name := arg0 + "_" + now.Format(logTimestampFormat) + "." + stream + ".log"
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name
}

// openLogFile creates the log file for one stream under dir (or the
// current directory when dir is empty). Created 0666 subject to umask,
// truncated if it already exists.
func openLogFile(dir, prefix, arg0, stream string, now time.Time) (*os.File, error) {
	path := logFileName(prefix, arg0, stream, now)
	if dir != "" {
		path = filepath.Join(dir, path)
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}
