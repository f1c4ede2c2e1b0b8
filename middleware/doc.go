// Package middleware composes interceptors around the invocation of an
// operation.
//
// Every call travels as a *CallCtx through an InvokeFn. A Middleware
// takes the next InvokeFn and returns a new one:
//
//	func Audit(log logging.Logger) middleware.Middleware {
//	    return func(next middleware.InvokeFn) middleware.InvokeFn {
//	        return func(ctx context.Context, call *middleware.CallCtx) (*middleware.CallResult, error) {
//	            log.Info("call", logging.F("name", call.Name))
//	            return next(ctx, call)
//	        }
//	    }
//	}
//
// Compose wraps a core function in onion order: for [A, B] the call runs
// A-before, B-before, core, B-after, A-after. A middleware may skip next,
// call it more than once, or hand it a modified CallCtx.
//
// # Built-in Middleware
//
//   - ErrorWrapper: turns thrown errors and panics into error results
//   - Recover: converts panics into errors
//   - RequestID: injects a request ID into the context
//   - Timeout: puts a deadline on the context
//   - Logging: logs each call with its duration
//   - RateLimit: token bucket limiting via fortify
//   - SizeLimit: rejects oversized raw input
//   - Auth: resolves an Identity from request metadata
//   - OTel: OpenTelemetry spans and metrics
//   - Prometheus: call counters and latency histograms
package middleware
