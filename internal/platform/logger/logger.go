// Package logger provides structured logging for the gang simulation host.
// Every resolved engine action should be traceable through Event.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps a slog.Logger with the small vocabulary the engine uses.
type Logger struct {
	base *slog.Logger
}

// NewLogger creates a logger writing text records to stdout.
func NewLogger() *Logger {
	return NewWithWriter(os.Stdout, slog.LevelInfo)
}

// NewWithWriter creates a logger writing to w at the given minimum level.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{base: slog.New(h).With("component", "gangs")}
}

// NewDiscard returns a logger that drops everything. Used by tests.
func NewDiscard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError+1)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, args ...any) {
	l.base.Info(msg, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, args ...any) {
	l.base.Warn(msg, args...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, args ...any) {
	l.base.Error(msg, args...)
}

// Event logs a resolved simulation event.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.base.Info(details, "event", eventType, "actor", actorID)
}
