// Package server holds the operation registry and the runtime that
// executes tools, renders prompts, and loads resources.
//
// A Registry is filled once, before anything is invoked:
//
//	reg := server.NewRegistry()
//	err := reg.AddTool(server.ToolSpec{
//	    Name:  "add",
//	    Input: schema.Object(map[string]*schema.Schema{"a": schema.Number(), "b": schema.Number()}, "a", "b"),
//	    Handler: func(ctx context.Context, input any, exec server.ExecutionCtx) (any, error) {
//	        in := input.(map[string]any)
//	        return in["a"].(float64) + in["b"].(float64), nil
//	    },
//	})
//
// The Runtime then resolves names against it:
//
//	rt := server.NewRuntime(reg, server.ExecutionCtx{Logger: logger, Version: "1.0.0"})
//	out, err := rt.ExecuteTool(ctx, "add", json.RawMessage(`{"a":5,"b":3}`))
//
// Failures are reported as *RuntimeError values carrying a stable Code,
// except values a handler raises with Throw, which reach the caller as-is.
package server
