package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/GordonDrop/mcpkit/logging"
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(context.Context, *CallCtx) string
	logger  logging.Logger
}

// WithRateLimitKeyFunc sets the function that picks the bucket for a call.
func WithRateLimitKeyFunc(fn func(context.Context, *CallCtx) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for rate limit events.
func WithRateLimitLogger(l logging.Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// RateLimit returns middleware that limits the call rate with a token
// bucket. rate is calls per second; burst allows short bursts above it.
// Rejected calls fail with ErrRateLimited.
func RateLimit(rate int, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{
		keyFunc: func(context.Context, *CallCtx) string { return "global" },
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			key := cfg.keyFunc(ctx, call)
			if !limiter.Allow(ctx, key) {
				cfg.logger.Warn("rate limit exceeded",
					logging.F("name", call.Name),
					logging.F("key", key),
				)
				return nil, ErrRateLimited
			}
			return next(ctx, call)
		}
	}
}

// RateLimitByName applies a separate bucket to every operation.
func RateLimitByName(rate int, burst int, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(func(_ context.Context, call *CallCtx) string {
			return call.Type.String() + ":" + call.Name
		}),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}

// RateLimitByClient applies a separate bucket to every client. clientID
// extracts the client identifier, typically from the request metadata.
func RateLimitByClient(rate int, burst int, clientID func(context.Context, *CallCtx) string, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(clientID),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}
