package middleware

import "context"

// Compose wraps core with mws. The first middleware becomes the outermost
// layer. With no middlewares core is returned as is.
func Compose(mws []Middleware, core InvokeFn) InvokeFn {
	if len(mws) == 0 {
		return core
	}
	return Chain(mws...)(core)
}

// Chain composes multiple middleware into a single middleware.
// Chain(m1, m2, m3) results in m1 wrapping m2 wrapping m3 wrapping the
// final InvokeFn.
func Chain(middlewares ...Middleware) Middleware {
	return func(final InvokeFn) InvokeFn {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// MiddlewareChain provides a fluent API for building middleware chains.
type MiddlewareChain struct {
	middlewares []Middleware
}

// Use creates a new middleware chain starting with the given middleware.
func Use(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Append adds middleware to the chain and returns the updated chain.
func (c *MiddlewareChain) Append(middlewares ...Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// Middlewares returns a copy of the accumulated middleware.
func (c *MiddlewareChain) Middlewares() []Middleware {
	out := make([]Middleware, len(c.middlewares))
	copy(out, c.middlewares)
	return out
}

// Then applies the chain to core.
func (c *MiddlewareChain) Then(core InvokeFn) InvokeFn {
	return Compose(c.middlewares, core)
}

// ThenFunc is Then for a plain function.
func (c *MiddlewareChain) ThenFunc(fn func(ctx context.Context, call *CallCtx) (*CallResult, error)) InvokeFn {
	return c.Then(InvokeFn(fn))
}
