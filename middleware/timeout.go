package middleware

import (
	"context"
	"time"
)

// Timeout returns middleware that puts a deadline on the context handed
// downstream. Handlers that honor ctx see context.DeadlineExceeded.
func Timeout(d time.Duration) Middleware {
	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, call)
		}
	}
}
