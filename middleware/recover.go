package middleware

import (
	"context"

	"github.com/cockroachdb/errors"
)

// PanicHandler is called when a panic is recovered.
type PanicHandler func(ctx context.Context, call *CallCtx, panicVal any) (*CallResult, error)

// Recover returns middleware that catches panics and converts them to errors.
func Recover() Middleware {
	return RecoverWithHandler(defaultPanicHandler)
}

// RecoverWithHandler returns middleware that catches panics and calls the
// provided handler.
func RecoverWithHandler(handler PanicHandler) Middleware {
	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (res *CallResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					res, err = handler(ctx, call, r)
				}
			}()
			return next(ctx, call)
		}
	}
}

func defaultPanicHandler(_ context.Context, call *CallCtx, panicVal any) (*CallResult, error) {
	if err, ok := panicVal.(error); ok {
		return nil, errors.Wrapf(err, "panic in %s %q", call.Type, call.Name)
	}
	return nil, errors.Newf("panic in %s %q: %v", call.Type, call.Name, panicVal)
}
