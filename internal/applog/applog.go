// Package applog opens github.com/cyclopcam/logs loggers for a process
// whose stdout is owned by the terminal UI.
package applog

import (
	"fmt"
	"io"
	"os"

	"github.com/cyclopcam/logs"
)

// New returns a logs.Log writing timestamped lines to w.
func New(w io.Writer) logs.Log {
	return &logs.Logger{Output: w}
}

// fileLog closes its file on Close, which logs.Logger leaves to the caller.
type fileLog struct {
	*logs.Logger
	file *os.File
}

func (l *fileLog) Close() {
	l.Logger.Close()
	l.file.Close()
}

// Open returns a logs.Log appending to the file at path. An empty path
// discards everything.
func Open(path string) (logs.Log, error) {
	if path == "" {
		return New(io.Discard), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &fileLog{Logger: &logs.Logger{Output: f}, file: f}, nil
}
