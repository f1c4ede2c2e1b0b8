package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/server"
)

// CallMeta carries per-call bookkeeping.
type CallMeta struct {
	// Start is the value of Now() when the call was received.
	Start int64
}

// CallCtx describes one invocation. A fresh CallCtx is created for every
// request and owned by that request's execution path.
type CallCtx struct {
	Type  server.Kind
	Name  string
	Input json.RawMessage
	Meta  CallMeta
}

// CallResult is what an invocation produces. When IsError is set, Content
// holds the failure instead of the produced value.
type CallResult struct {
	Content any
	IsError bool
}

// InvokeFn executes a call. Returning a non-nil error means the call threw.
type InvokeFn func(ctx context.Context, call *CallCtx) (*CallResult, error)

// Middleware wraps an InvokeFn with additional behavior.
type Middleware func(next InvokeFn) InvokeFn

var epoch = time.Now()

// Now returns monotonic nanoseconds since process start.
func Now() int64 {
	return int64(time.Since(epoch))
}

// NewCall builds a CallCtx stamped with the current time.
func NewCall(kind server.Kind, name string, input json.RawMessage) *CallCtx {
	return &CallCtx{
		Type:  kind,
		Name:  name,
		Input: input,
		Meta:  CallMeta{Start: Now()},
	}
}

// Elapsed returns the time since the call was received.
func (c *CallCtx) Elapsed() time.Duration {
	return time.Duration(Now() - c.Meta.Start)
}

// DefaultStack returns the recommended production middleware stack.
func DefaultStack(logger logging.Logger) []Middleware {
	return []Middleware{
		Recover(),
		RequestID(),
		Logging(logger),
	}
}

// DefaultStackWithTimeout returns the default stack with a timeout middleware.
func DefaultStackWithTimeout(logger logging.Logger, timeout time.Duration) []Middleware {
	return []Middleware{
		Recover(),
		RequestID(),
		Timeout(timeout),
		Logging(logger),
	}
}
