package server

import (
	"sync"

	"github.com/GordonDrop/mcpkit/logging"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

type recordLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordLogger) record(level, msg string, fields []logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *recordLogger) Info(msg string, fields ...logging.Field)  { l.record("info", msg, fields) }
func (l *recordLogger) Error(msg string, fields ...logging.Field) { l.record("error", msg, fields) }
func (l *recordLogger) Debug(msg string, fields ...logging.Field) { l.record("debug", msg, fields) }
func (l *recordLogger) Warn(msg string, fields ...logging.Field)  { l.record("warn", msg, fields) }

func (l *recordLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}
