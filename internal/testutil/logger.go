// Package testutil holds helpers shared by BlindDock tests.
package testutil

import (
	"sync"

	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level   logging.Level
	Name    string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field and whether it was set.
func (e LogEntry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// RecordingLogger implements logging.Logger and keeps every entry in memory.
// Children created with With or Named write to the same sink.
type RecordingLogger struct {
	sink   *logSink
	name   string
	fields []logging.Field
}

// NewRecordingLogger returns an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &logSink{}}
}

func (l *RecordingLogger) record(level logging.Level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, LogEntry{Level: level, Name: l.name, Message: msg, Fields: all})
}

func (l *RecordingLogger) Debug(msg string, fields ...logging.Field) {
	l.record(logging.LevelDebug, msg, fields)
}
func (l *RecordingLogger) Info(msg string, fields ...logging.Field) {
	l.record(logging.LevelInfo, msg, fields)
}
func (l *RecordingLogger) Warn(msg string, fields ...logging.Field) {
	l.record(logging.LevelWarn, msg, fields)
}
func (l *RecordingLogger) Error(msg string, fields ...logging.Field) {
	l.record(logging.LevelError, msg, fields)
}

// Fatal records the entry at error level and does not exit.
func (l *RecordingLogger) Fatal(msg string, fields ...logging.Field) {
	l.record(logging.LevelError, msg, fields)
}

func (l *RecordingLogger) With(fields ...logging.Field) logging.Logger {
	child := &RecordingLogger{sink: l.sink, name: l.name}
	child.fields = append(append(child.fields, l.fields...), fields...)
	return child
}

func (l *RecordingLogger) Named(name string) logging.Logger {
	child := &RecordingLogger{sink: l.sink, name: name, fields: l.fields}
	if l.name != "" {
		child.name = l.name + "." + name
	}
	return child
}

func (l *RecordingLogger) SetLevel(logging.Level) {}
func (l *RecordingLogger) Sync() error            { return nil }

// Entries returns a copy of everything logged so far.
func (l *RecordingLogger) Entries() []LogEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	out := make([]LogEntry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// Find returns the entries with the given message.
func (l *RecordingLogger) Find(msg string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether msg was logged at level.
func (l *RecordingLogger) Has(level logging.Level, msg string) bool {
	for _, e := range l.Find(msg) {
		if e.Level == level {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
