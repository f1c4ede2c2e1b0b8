package mcp_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	mcp "github.com/GordonDrop/mcpkit"
	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/server"
	"github.com/GordonDrop/mcpkit/transport"
)

func benchBundle(b *testing.B, mws ...mcp.Middleware) *mcp.Bundle {
	b.Helper()
	add, err := mcp.TypedTool("add", "Add two numbers",
		func(_ context.Context, in AddInput, _ mcp.ExecutionCtx) (AddOutput, error) {
			return AddOutput{Result: in.A + in.B}, nil
		})
	if err != nil {
		b.Fatal(err)
	}
	bundle, err := mcp.New().Tool(add).Use(mws...).Build()
	if err != nil {
		b.Fatal(err)
	}
	return bundle
}

// BenchmarkToolExecution measures a typed tool call through the bare chain.
func BenchmarkToolExecution(b *testing.B) {
	bundle := benchBundle(b)
	input := json.RawMessage(`{"a":2,"b":3}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := bundle.Call(context.Background(), server.KindTool, "add", input)
		if err != nil || res.IsError {
			b.Fatal(res, err)
		}
	}
}

// BenchmarkMiddlewareChain measures the default middleware stack overhead.
func BenchmarkMiddlewareChain(b *testing.B) {
	bundle := benchBundle(b, mcp.DefaultMiddleware(logging.Nop())...)
	input := json.RawMessage(`{"a":2,"b":3}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bundle.Call(context.Background(), server.KindTool, "add", input); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPromptRender measures template rendering.
func BenchmarkPromptRender(b *testing.B) {
	bundle, err := mcp.New().
		Prompt(mcp.PromptSpec{Name: "greet", Template: "Hello, {{name}}! Today is {{day}}."}).
		Build()
	if err != nil {
		b.Fatal(err)
	}
	params := json.RawMessage(`{"name":"Ada","day":"Monday"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bundle.Call(context.Background(), server.KindPrompt, "greet", params); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDispatch measures decoding, invoking and encoding one line.
func BenchmarkDispatch(b *testing.B) {
	bundle := benchBundle(b)
	line := []byte(`{"protocolVersion":"2.0","id":1,"method":"tool","params":{"name":"add","input":{"a":2,"b":3}}}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp := transport.Dispatch(context.Background(), bundle.Invoke, line)
		data, err := json.Marshal(resp)
		if err != nil {
			b.Fatal(err)
		}
		_, _ = io.Discard.Write(data)
	}
}

// BenchmarkDispatch_Parallel measures concurrent dispatch.
func BenchmarkDispatch_Parallel(b *testing.B) {
	bundle := benchBundle(b)
	line := []byte(`{"protocolVersion":"2.0","id":1,"method":"tool","params":{"name":"add","input":{"a":2,"b":3}}}`)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if resp := transport.Dispatch(context.Background(), bundle.Invoke, line); resp.Error != nil {
				b.Fatal(resp.Error)
			}
		}
	})
}
