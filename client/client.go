// Package client calls tools on a server speaking the line protocol.
package client

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
	"github.com/GordonDrop/mcpkit/protocol"
)

// ErrClosed is returned by Send after the transport is closed or its
// input has ended.
var ErrClosed = errors.New("client: transport closed")

// Transport carries one request and waits for its response.
type Transport interface {
	Send(ctx context.Context, req *protocol.Request) (*protocol.RawResponse, error)
	Close() error
}

// Client issues requests over a Transport. It is safe for concurrent use.
type Client struct {
	transport Transport
	timeout   time.Duration
	requestID atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the default timeout for requests. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client over t.
func New(t Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallTool calls the named tool and returns the raw result. An error
// response is returned as a *protocol.Error.
func (c *Client) CallTool(ctx context.Context, name string, input any) (json.RawMessage, error) {
	params := protocol.ToolParams{Name: name}
	if input != nil {
		raw, err := toRaw(input)
		if err != nil {
			return nil, errors.Wrap(err, "encode input")
		}
		params.Input = raw
	}
	return c.Call(ctx, protocol.MethodTool, params)
}

// Call sends a request with an arbitrary method.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	rawParams, err := toRaw(params)
	if err != nil {
		return nil, errors.Wrap(err, "encode params")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := c.requestID.Add(1)
	req := &protocol.Request{
		ProtocolVersion: protocol.Version,
		ID:              json.RawMessage(strconv.FormatInt(id, 10)),
		Method:          method,
		Params:          rawParams,
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request %d", method, id)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func toRaw(v any) (json.RawMessage, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	}
	data, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
