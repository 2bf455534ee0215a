// Package build provides the logging infrastructure shared by every
// dcrswap subsystem: a rotating log writer and helpers for wiring
// per-subsystem loggers onto it.
package build

import (
	"fmt"
	"io"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogWriter is a stub io.Writer that will be replaced by a concrete
// implementation (console, file, or both) depending on build tags.
type LogWriter struct {
	io.Writer
}

// NewLogWriter returns a new, unconfigured LogWriter.
func NewLogWriter() *LogWriter {
	return &LogWriter{}
}

// RotatingLogWriter is a wrapper around a rotating log file that allows
// it to be passed into the slog subsystem logging framework as a
// "backend", and also updated to point to a new file at runtime.
type RotatingLogWriter struct {
	backend *slog.Backend
	rotator *rotator.Rotator
	logWriter *LogWriter
}

// NewRotatingLogWriter creates a new, unconfigured log writer that must
// be set up with InitLogRotator to be used for logging.
func NewRotatingLogWriter() *RotatingLogWriter {
	logWriter := NewLogWriter()
	return &RotatingLogWriter{
		logWriter: logWriter,
		backend:   slog.NewBackend(logWriter),
	}
}

// InitLogRotator initializes the log file rotator to write logs to
// logFile and create roll files in the same directory. It must be
// called before the log rotator can be used.
func (r *RotatingLogWriter) InitLogRotator(logFile string, maxLogFileSize int64, maxLogFiles int) error {
	logDir, _ := splitDir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rot, err := rotator.New(logFile, maxLogFileSize*1024, false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go rot.Run(pr)

	r.rotator = rot
	r.logWriter.Writer = io.MultiWriter(os.Stdout, pw)
	return nil
}

// GenSubLogger creates a new sublogger. Used to provide an
// initialized slog.Logger for use in SetSubLogger below.
func (r *RotatingLogWriter) GenSubLogger(tag string) slog.Logger {
	return r.backend.Logger(tag)
}

// RegisterSubLogger is called for every subsystem logger that is set up.
// It is a no-op: this writer keeps no registry of subsystem loggers.
func (r *RotatingLogWriter) RegisterSubLogger(subsystem string, logger slog.Logger) {
}

// Close closes the underlying log rotator if one has been initialized.
func (r *RotatingLogWriter) Close() error {
	if r.rotator == nil {
		return nil
	}
	return r.rotator.Close()
}

// NewSubLogger constructs a new subsystem logger from the given root
// logger generator. If genSubLogger is nil, a logger that discards
// everything is returned, so that package-level loggers declared before
// SetupLoggers runs never dereference a nil logger.
func NewSubLogger(subsystem string, genSubLogger func(string) slog.Logger) slog.Logger {
	if genSubLogger == nil {
		return slog.Disabled
	}
	return genSubLogger(subsystem)
}

func splitDir(path string) (string, string) {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[:i], path[i+1:]
		}
	}
	return ".", path
}
