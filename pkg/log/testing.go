package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Entry is a single captured log record.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// TestLogger captures log records in memory so tests can assert on them.
// It is safe for concurrent use; With-derived loggers share the same sink.
type TestLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	level   Level
	fields  map[string]any
}

// NewTestLogger creates a TestLogger capturing records at or above level.
//
// Example:
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	logger.Info("fit complete", log.SamplesKey, 100)
//	if !logger.Contains("fit complete") { ... }
func NewTestLogger(level Level) *TestLogger {
	var entries []Entry
	return &TestLogger{
		mu:      &sync.Mutex{},
		entries: &entries,
		level:   level,
		fields:  map[string]any{},
	}
}

// Debug implements Logger.Debug.
func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields...) }

// Info implements Logger.Info.
func (t *TestLogger) Info(msg string, fields ...any) { t.record(LevelInfo, msg, fields...) }

// Warn implements Logger.Warn.
func (t *TestLogger) Warn(msg string, fields ...any) { t.record(LevelWarn, msg, fields...) }

// Error implements Logger.Error.
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields...) }

// With implements Logger.With.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		merged[fmt.Sprintf("%v", fields[i])] = fields[i+1]
	}
	return &TestLogger{mu: t.mu, entries: t.entries, level: t.level, fields: merged}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

// Entries returns a copy of the captured records.
func (t *TestLogger) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(*t.entries))
	copy(out, *t.entries)
	return out
}

// Contains reports whether any captured message contains substr.
func (t *TestLogger) Contains(substr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range *t.entries {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func (t *TestLogger) record(level Level, msg string, fields ...any) {
	if t.level > level {
		return
	}
	entry := Entry{Level: level, Message: msg, Fields: map[string]any{}}
	for k, v := range t.fields {
		entry.Fields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		entry.Fields[fmt.Sprintf("%v", fields[i])] = fields[i+1]
	}
	t.mu.Lock()
	*t.entries = append(*t.entries, entry)
	t.mu.Unlock()
}
