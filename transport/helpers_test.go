package transport

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/schema"
	"github.com/GordonDrop/mcpkit/server"
)

// testInvoker wires a runtime with add, boom and sleep tools behind the
// error wrapper, the way the builder does.
func testInvoker() middleware.InvokeFn {
	reg := server.NewRegistry()
	_ = reg.AddTool(server.ToolSpec{
		Name: "add",
		Input: schema.Object(map[string]*schema.Schema{
			"a": schema.Number(),
			"b": schema.Number(),
		}, "a", "b"),
		Handler: func(_ context.Context, input any, _ server.ExecutionCtx) (any, error) {
			in := input.(map[string]any)
			return map[string]any{"result": in["a"].(float64) + in["b"].(float64)}, nil
		},
	})
	_ = reg.AddTool(server.ToolSpec{
		Name: "boom",
		Handler: func(context.Context, any, server.ExecutionCtx) (any, error) {
			return nil, server.Throw("boom")
		},
	})
	_ = reg.AddTool(server.ToolSpec{
		Name: "sleep",
		Handler: func(_ context.Context, input any, _ server.ExecutionCtx) (any, error) {
			in := input.(map[string]any)
			time.Sleep(time.Duration(in["ms"].(float64)) * time.Millisecond)
			return in["tag"], nil
		},
	})

	rt := server.NewRuntime(reg, server.ExecutionCtx{Logger: logging.Nop(), Version: "1.0.0"})
	core := func(ctx context.Context, call *middleware.CallCtx) (*middleware.CallResult, error) {
		out, err := rt.ExecuteTool(ctx, call.Name, call.Input)
		if err != nil {
			return nil, err
		}
		return &middleware.CallResult{Content: out}, nil
	}
	return middleware.Compose([]middleware.Middleware{middleware.ErrorWrapper()}, core)
}

func errInvoker(err error) middleware.InvokeFn {
	return func(context.Context, *middleware.CallCtx) (*middleware.CallResult, error) {
		return nil, err
	}
}

var errBoom = errors.New("boom")

// syncBuffer is a goroutine-safe output sink.
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

func (b *syncBuffer) Lines() []string {
	out := strings.TrimSuffix(b.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func decodeLine(line string) map[string]any {
	var m map[string]any
	_ = json.Unmarshal([]byte(line), &m)
	return m
}
