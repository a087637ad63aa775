package log

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// zerologLogger is the default Logger backend, emitting structured JSON.
type zerologLogger struct {
	logger zerolog.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = newZerologLogger(
		zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger(),
	)
)

func newZerologLogger(zl zerolog.Logger) *zerologLogger {
	return &zerologLogger{logger: zl}
}

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetDefault replaces the process-wide default logger. The CLI uses this to
// install a console backend; tests use it to install a TestLogger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// SetLevel sets the minimum level on the default zerolog backend. It has no
// effect when a non-zerolog logger has been installed via SetDefault.
func SetLevel(level Level) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if zl, ok := defaultLogger.(*zerologLogger); ok {
		defaultLogger = newZerologLogger(zl.logger.Level(toZerologLevel(level)))
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func init() {
	// Route pkg/errors warnings through the structured logger.
	churnErrors.SetZerologWarnFunc(func(warning error) {
		GetLogger().Warn(warning.Error(), "warning", warning)
	})
}

// Debug implements Logger.Debug.
func (z *zerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields...)
}

// Info implements Logger.Info.
func (z *zerologLogger) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields...)
}

// Warn implements Logger.Warn.
func (z *zerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields...)
}

// Error implements Logger.Error.
func (z *zerologLogger) Error(msg string, fields ...any) {
	z.emit(z.logger.Error(), msg, fields...)
}

// With implements Logger.With.
func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		ctx = appendContext(ctx, key, fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= z.logger.GetLevel()
}

// emit attaches the variadic key-value fields to an event and sends it.
// Error values get special treatment: structured marshalling when the type
// supports it, plus a stack trace extracted via cockroachdb/errors.
func (z *zerologLogger) emit(event *zerolog.Event, msg string, fields ...any) {
	if event == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		value := fields[i+1]

		switch v := value.(type) {
		case zerolog.LogObjectMarshaler:
			event = event.Object(key, v)
		case error:
			event = event.Err(v)
			if details := errors.GetSafeDetails(v).SafeDetails; len(details) > 0 {
				event = event.Str("stacktrace", details[0])
			}
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

func appendContext(ctx zerolog.Context, key string, value any) zerolog.Context {
	switch v := value.(type) {
	case string:
		return ctx.Str(key, v)
	case int:
		return ctx.Int(key, v)
	case int64:
		return ctx.Int64(key, v)
	case float64:
		return ctx.Float64(key, v)
	case bool:
		return ctx.Bool(key, v)
	case error:
		return ctx.AnErr(key, v)
	default:
		return ctx.Interface(key, v)
	}
}
