package middleware

import (
	"context"
	"errors"
	"testing"
)

func TestLogging(t *testing.T) {
	tests := []struct {
		name    string
		core    InvokeFn
		level   string
		msg     string
		wantErr bool
	}{
		{"success", okCore("ok"), "info", "call completed", false},
		{
			"error result",
			func(context.Context, *CallCtx) (*CallResult, error) {
				return &CallResult{Content: "bad", IsError: true}, nil
			},
			"warn", "call returned error", false,
		},
		{
			"thrown",
			func(context.Context, *CallCtx) (*CallResult, error) {
				return nil, errors.New("boom")
			},
			"error", "call failed", true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordLogger{}
			_, err := Logging(logger)(tt.core)(context.Background(), toolCall("add"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}

			entry := logger.last()
			if entry.level != tt.level || entry.msg != tt.msg {
				t.Errorf("logged %s %q, want %s %q", entry.level, entry.msg, tt.level, tt.msg)
			}
			if entry.fields["name"] != "add" || entry.fields["type"] != "tool" {
				t.Errorf("fields = %v", entry.fields)
			}
			if _, ok := entry.fields["duration"]; !ok {
				t.Error("missing duration field")
			}
			if tt.wantErr && entry.fields["error"] != "boom" {
				t.Errorf("error field = %v, want boom", entry.fields["error"])
			}
		})
	}
}

func TestLogging_RequestID(t *testing.T) {
	logger := &recordLogger{}
	fn := Compose([]Middleware{RequestIDWithGenerator(func() string { return "req-1" }), Logging(logger)}, okCore("ok"))
	_, _ = fn(context.Background(), toolCall("t"))

	if got := logger.last().fields["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}
