package logging

import (
	"io"
	"log"
	"os"
)

// #region logger

// Logger is a minimal leveled logger. Callers pass a bracketed tag as part
// of the format string, e.g. Infof("[GATE] approved suggestion %s", id).
type Logger struct {
	min Level
	l   *log.Logger
}

// New creates a Logger writing to stderr at the given minimum level.
func New(min Level) *Logger {
	return &Logger{min: min, l: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewWithOutput creates a Logger writing to w. Used by tests.
func NewWithOutput(min Level, w io.Writer) *Logger {
	return &Logger{min: min, l: log.New(w, "", 0)}
}

// FromEnv creates a Logger whose level comes from GOVERNOR_LOG_LEVEL.
func FromEnv() *Logger {
	return New(ParseLevel(os.Getenv("GOVERNOR_LOG_LEVEL")))
}

// #endregion logger

// #region methods

// Debugf logs at debug level.
func (lg *Logger) Debugf(format string, args ...any) {
	lg.printf(LevelDebug, format, args...)
}

// Infof logs at info level.
func (lg *Logger) Infof(format string, args ...any) {
	lg.printf(LevelInfo, format, args...)
}

// Warnf logs at warn level.
func (lg *Logger) Warnf(format string, args ...any) {
	lg.printf(LevelWarn, format, args...)
}

// Errorf logs at error level.
func (lg *Logger) Errorf(format string, args ...any) {
	lg.printf(LevelError, format, args...)
}

// Leveled logs at an arbitrary level; used by the error classifier to match
// log level to error severity.
func (lg *Logger) Leveled(level Level, format string, args ...any) {
	lg.printf(level, format, args...)
}

func (lg *Logger) printf(level Level, format string, args ...any) {
	if lg == nil || level < lg.min {
		return
	}
	lg.l.Printf(format, args...)
}

// #endregion methods
