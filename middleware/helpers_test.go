package middleware

import (
	"context"
	"sync"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/server"
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

func (l *recordLogger) add(level, msg string, fields []logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level, msg, m})
}

func (l *recordLogger) Info(msg string, fields ...logging.Field)  { l.add("info", msg, fields) }
func (l *recordLogger) Error(msg string, fields ...logging.Field) { l.add("error", msg, fields) }
func (l *recordLogger) Debug(msg string, fields ...logging.Field) { l.add("debug", msg, fields) }
func (l *recordLogger) Warn(msg string, fields ...logging.Field)  { l.add("warn", msg, fields) }

func (l *recordLogger) last() logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return logEntry{}
	}
	return l.entries[len(l.entries)-1]
}

func okCore(content any) InvokeFn {
	return func(context.Context, *CallCtx) (*CallResult, error) {
		return &CallResult{Content: content}, nil
	}
}

func toolCall(name string) *CallCtx {
	return NewCall(server.KindTool, name, nil)
}
