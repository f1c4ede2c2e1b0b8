package transport

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/protocol"
	"github.com/GordonDrop/mcpkit/server"
)

// Dispatch handles one inbound line and returns the response to send, or
// nil for a blank line.
func Dispatch(ctx context.Context, invoke middleware.InvokeFn, line []byte) *protocol.Response {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	req, perr := protocol.DecodeRequest(line)
	if perr != nil {
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		return protocol.NewErrorResponse(id, perr)
	}

	if req.Method != protocol.MethodTool {
		return protocol.NewErrorResponse(req.ID, protocol.NewMethodNotFound(protocol.MsgMethodNotFound))
	}

	params, perr := protocol.DecodeToolParams(req.Params)
	if perr != nil {
		return protocol.NewErrorResponse(req.ID, perr)
	}

	res, err := invokeSafely(ctx, invoke, middleware.NewCall(server.KindTool, params.Name, params.Input))
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.NewInternalError(protocol.MsgInternalError).WithData(err.Error()))
	}
	if res == nil {
		return protocol.NewResponse(req.ID, nil)
	}
	if res.IsError {
		return protocol.NewErrorResponse(req.ID, &protocol.Error{
			Code:    protocol.CodeInternalError,
			Message: protocol.MsgToolExecutionFailed,
			Data:    EncodeContent(res.Content),
		})
	}
	return protocol.NewResponse(req.ID, res.Content)
}

// invokeSafely runs invoke, reporting a panic as an error.
func invokeSafely(ctx context.Context, invoke middleware.InvokeFn, call *middleware.CallCtx) (res *middleware.CallResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, errors.Newf("panic: %v", p)
		}
	}()
	return invoke(ctx, call)
}

// EncodeContent maps the content of an error result to the data member of
// the error envelope. Runtime errors encode as {code, message}, opaque
// values as themselves and other errors as their message.
func EncodeContent(content any) any {
	switch c := content.(type) {
	case *server.RuntimeError:
		return c
	case *server.Opaque:
		return c.Value
	case error:
		f := server.Classify(c)
		switch {
		case f.Structured != nil:
			return f.Structured
		case f.Opaque != nil:
			return f.Opaque.Value
		}
		return c.Error()
	}
	return content
}
