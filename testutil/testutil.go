// Package testutil drives a built server in memory, through the real
// stdio transport, for tests.
//
// Example usage:
//
//	func TestMyServer(t *testing.T) {
//	    b := mcp.New().Tool(greetTool)
//
//	    tc := testutil.NewTestClient(t, b)
//
//	    out, err := tc.CallTool("greet", map[string]any{"name": "World"})
//	    require.NoError(t, err)
//	    assert.JSONEq(t, `"Hello, World"`, string(out))
//	}
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	mcp "github.com/GordonDrop/mcpkit"
	"github.com/GordonDrop/mcpkit/client"
	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/ndjson"
	"github.com/GordonDrop/mcpkit/protocol"
	"github.com/GordonDrop/mcpkit/server"
	"github.com/GordonDrop/mcpkit/transport"
)

// DefaultTimeout bounds how long Recv waits for a response line.
const DefaultTimeout = 2 * time.Second

// Pipe is an in-memory line connection to an invoker served by a stdio
// transport.
type Pipe struct {
	t       testing.TB
	srv     *transport.Stdio
	in      *io.PipeWriter
	lines   chan string
	done    chan error
	timeout time.Duration
}

// NewPipe serves invoke and returns a connection to it. The connection is
// closed when the test ends.
func NewPipe(t testing.TB, invoke middleware.InvokeFn) *Pipe {
	t.Helper()

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	p := &Pipe{
		t:       t,
		srv:     transport.NewStdio(transport.WithReader(reqR), transport.WithWriter(respW)),
		in:      reqW,
		lines:   make(chan string, 128),
		done:    make(chan error, 1),
		timeout: DefaultTimeout,
	}

	go func() {
		err := p.srv.Start(context.Background(), invoke)
		_ = respW.Close()
		p.done <- err
	}()
	go func() {
		defer close(p.lines)
		r := ndjson.NewReader(respR)
		for {
			line, err := r.ReadLine()
			if err != nil {
				return
			}
			p.lines <- string(line)
		}
	}()

	t.Cleanup(func() { _ = p.Close() })
	return p
}

// Send writes one raw line.
func (p *Pipe) Send(line string) {
	p.t.Helper()
	if _, err := io.WriteString(p.in, line+"\n"); err != nil {
		p.t.Fatalf("send %q: %v", line, err)
	}
}

// SendRequest writes a well-formed envelope.
func (p *Pipe) SendRequest(id any, method string, params any) {
	p.t.Helper()
	req := map[string]any{
		"protocolVersion": protocol.Version,
		"id":              id,
		"method":          method,
	}
	if params != nil {
		req["params"] = params
	}
	data, err := jsoncodec.Marshal(req)
	if err != nil {
		p.t.Fatalf("encode request: %v", err)
	}
	p.Send(string(data))
}

// Recv returns the next response line, failing the test on timeout.
func (p *Pipe) Recv() string {
	p.t.Helper()
	select {
	case line, ok := <-p.lines:
		if !ok {
			p.t.Fatal("connection closed while waiting for a response")
		}
		return line
	case <-time.After(p.timeout):
		p.t.Fatalf("no response within %s", p.timeout)
	}
	return ""
}

// RecvN returns the next n response lines in arrival order.
func (p *Pipe) RecvN(n int) []string {
	p.t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, p.Recv())
	}
	return out
}

// RecvResponse decodes the next response line.
func (p *Pipe) RecvResponse() *protocol.RawResponse {
	p.t.Helper()
	line := p.Recv()
	var resp protocol.RawResponse
	if err := jsoncodec.Unmarshal([]byte(line), &resp); err != nil {
		p.t.Fatalf("decode response %q: %v", line, err)
	}
	return &resp
}

// AssertNoResponse fails the test if a line arrives within d.
func (p *Pipe) AssertNoResponse(d time.Duration) {
	p.t.Helper()
	select {
	case line, ok := <-p.lines:
		if ok {
			p.t.Errorf("unexpected response %s", line)
		}
	case <-time.After(d):
	}
}

// Transport returns the served transport.
func (p *Pipe) Transport() *transport.Stdio { return p.srv }

// Close ends the input and waits for the transport to finish in-flight
// calls. It returns the error Start returned.
func (p *Pipe) Close() error {
	_ = p.in.Close()
	select {
	case err, ok := <-p.done:
		if ok {
			close(p.done)
		}
		return err
	case <-time.After(p.timeout):
		return context.DeadlineExceeded
	}
}

// TestClient calls a built server through the client package over an
// in-memory pipe.
type TestClient struct {
	t      testing.TB
	bundle *mcp.Bundle
	client *client.Client
}

// NewTestClient builds b and connects a client to it.
func NewTestClient(t testing.TB, b *mcp.Builder) *TestClient {
	t.Helper()

	bundle, err := b.Build()
	if err != nil {
		t.Fatalf("build server: %v", err)
	}

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	srv := transport.NewStdio(transport.WithReader(reqR), transport.WithWriter(respW))
	go func() {
		_ = srv.Start(context.Background(), bundle.Invoke)
		_ = respW.Close()
	}()

	tc := &TestClient{
		t:      t,
		bundle: bundle,
		client: client.New(client.NewPipeTransport(respR, reqW), client.WithTimeout(DefaultTimeout)),
	}
	t.Cleanup(tc.Close)
	return tc
}

// Close closes the connection.
func (tc *TestClient) Close() {
	_ = tc.client.Close()
}

// Bundle returns the built server.
func (tc *TestClient) Bundle() *mcp.Bundle { return tc.bundle }

// CallTool calls a tool over the wire. Error responses are returned as
// *protocol.Error.
func (tc *TestClient) CallTool(name string, input any) (json.RawMessage, error) {
	tc.t.Helper()
	return tc.client.CallTool(context.Background(), name, input)
}

// CallToolInto calls a tool and decodes its result into out.
func (tc *TestClient) CallToolInto(name string, input, out any) error {
	tc.t.Helper()
	raw, err := tc.CallTool(name, input)
	if err != nil {
		return err
	}
	return jsoncodec.Unmarshal(raw, out)
}

// RenderPrompt renders a prompt through the middleware chain. Prompts are
// not served over the wire.
func (tc *TestClient) RenderPrompt(name string, params any) (string, error) {
	tc.t.Helper()
	res, err := tc.call(server.KindPrompt, name, params)
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

// GetResource loads a resource through the middleware chain.
func (tc *TestClient) GetResource(name string) (string, error) {
	tc.t.Helper()
	res, err := tc.call(server.KindResource, name, nil)
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

func (tc *TestClient) call(kind server.Kind, name string, input any) (any, error) {
	var raw json.RawMessage
	if input != nil {
		data, err := jsoncodec.Marshal(input)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	res, err := tc.bundle.Call(context.Background(), kind, name, raw)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		if e, ok := res.Content.(error); ok {
			return nil, e
		}
		return nil, server.Throw(res.Content)
	}
	return res.Content, nil
}

// AssertToolExists asserts that a tool with the given name exists.
func (tc *TestClient) AssertToolExists(name string) {
	tc.t.Helper()
	if !tc.bundle.Registry.HasTool(name) {
		tc.t.Errorf("tool %q not found", name)
	}
}

// AssertPromptExists asserts that a prompt with the given name exists.
func (tc *TestClient) AssertPromptExists(name string) {
	tc.t.Helper()
	if !tc.bundle.Registry.HasPrompt(name) {
		tc.t.Errorf("prompt %q not found", name)
	}
}

// AssertResourceExists asserts that a resource with the given name exists.
func (tc *TestClient) AssertResourceExists(name string) {
	tc.t.Helper()
	if !tc.bundle.Registry.HasResource(name) {
		tc.t.Errorf("resource %q not found", name)
	}
}
