// Package activitylog appends timestamped, human-readable chat activity to a
// file. Writes are best effort: a failure is reported on the operational
// logger and never reaches the caller.
package activitylog

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// TimeLayout renders timestamps as dd-MM-yyyy HH:mm:ss.
const TimeLayout = "02-01-2006 15:04:05"

// File is an append-only activity log backed by a file path.
// The file is opened for every record so it can be rotated or removed
// while the process runs.
type File struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func New(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the file the log appends to.
func (f *File) Path() string { return f.path }

// Record appends one line for message.
func (f *File) Record(message string) {
	line := Format(f.now(), message)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := appendLine(f.path, line); err != nil {
		f.logger.Error("activity log write failed", "path", f.path, "error", err)
	}
}

// Format renders a single record, including the trailing newline.
func Format(t time.Time, message string) string {
	return "[" + t.Format(TimeLayout) + "] " + message + "\n"
}

func appendLine(path, line string) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.WriteString(line); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
