// Package log is a small structured-logging shim over the standard
// library's log/slog, ported in the teacher's own call shape
// (category-scoped sub-loggers, Warnf/Errorf/Debugf-style formatting
// helpers) since no third-party structured logger appears anywhere in the
// retrieved corpus (§10.3).
package log

import (
	"fmt"
	"log/slog"
	"os"
)

var root = slog.New(slog.NewTextHandler(os.Stderr, nil))

// SubLogger is a category-scoped logger, the unit every package in this
// module logs through (e.g. log.NewSubLogger("Executor")).
type SubLogger struct {
	category string
	handler  *slog.Logger
}

// NewSubLogger returns a SubLogger tagged with category, so every line it
// emits carries that category as a structured field.
func NewSubLogger(category string) *SubLogger {
	return &SubLogger{category: category, handler: root.With("category", category)}
}

// Debugf logs at debug level.
func (s *SubLogger) Debugf(format string, args ...interface{}) {
	s.handler.Debug(fmt.Sprintf(format, args...))
}

// Infof logs at info level.
func (s *SubLogger) Infof(format string, args ...interface{}) {
	s.handler.Info(fmt.Sprintf(format, args...))
}

// Warnf logs at warn level.
func (s *SubLogger) Warnf(format string, args ...interface{}) {
	s.handler.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs at error level.
func (s *SubLogger) Errorf(format string, args ...interface{}) {
	s.handler.Error(fmt.Sprintf(format, args...))
}
