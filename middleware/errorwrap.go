package middleware

import (
	"context"

	"github.com/GordonDrop/mcpkit/server"
)

// ErrorWrapper turns anything the wrapped function throws, returned
// errors and panics alike, into a CallResult with IsError set. Opaque
// failures are unwrapped so Content holds the raised value itself.
//
// The builder appends it after all user middleware, so it only sees
// failures from the core and from middleware registered after it.
func ErrorWrapper() Middleware {
	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (res *CallResult, err error) {
			defer func() {
				if p := recover(); p != nil {
					res, err = &CallResult{Content: panicContent(p), IsError: true}, nil
				}
			}()

			res, err = next(ctx, call)
			if err != nil {
				return &CallResult{Content: errorContent(err), IsError: true}, nil
			}
			if res == nil {
				res = &CallResult{}
			}
			return res, nil
		}
	}
}

func errorContent(err error) any {
	if v, ok := server.AsOpaque(err); ok {
		return v
	}
	return err
}

func panicContent(p any) any {
	if err, ok := p.(error); ok {
		return errorContent(err)
	}
	return p
}
