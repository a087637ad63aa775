package log

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// slogLogger adapts a *slog.Logger to the Logger interface. It backs the
// console output of the CLI; the interface's variadic fields map directly
// onto slog's key-value arguments.
type slogLogger struct {
	logger *slog.Logger
}

// NewConsoleLogger returns a Logger that renders compact, colorized,
// human-readable output via the tint handler. Intended for the single-run
// CLI where an analyst reads the log directly.
func NewConsoleLogger(w io.Writer, level Level) Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      slog.Level(level),
		TimeFormat: time.Kitchen,
	})
	return &slogLogger{logger: slog.New(handler)}
}

// NewSlogLogger wraps an arbitrary slog.Logger in the Logger interface.
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

// Debug implements Logger.Debug.
func (s *slogLogger) Debug(msg string, fields ...any) {
	s.logger.Debug(msg, fields...)
}

// Info implements Logger.Info.
func (s *slogLogger) Info(msg string, fields ...any) {
	s.logger.Info(msg, fields...)
}

// Warn implements Logger.Warn.
func (s *slogLogger) Warn(msg string, fields ...any) {
	s.logger.Warn(msg, fields...)
}

// Error implements Logger.Error.
func (s *slogLogger) Error(msg string, fields ...any) {
	s.logger.Error(msg, fields...)
}

// With implements Logger.With.
func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: s.logger.With(fields...)}
}

// Enabled implements Logger.Enabled.
func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, slog.Level(level))
}
