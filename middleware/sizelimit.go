package middleware

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
)

// SizeLimitOption configures the size limit middleware.
type SizeLimitOption func(*sizeLimitConfig)

type sizeLimitConfig struct {
	logger logging.Logger
}

// WithSizeLimitLogger sets the logger for size limit events.
func WithSizeLimitLogger(l logging.Logger) SizeLimitOption {
	return func(o *sizeLimitConfig) {
		o.logger = l
	}
}

// SizeLimit returns middleware that rejects calls whose raw input is
// larger than maxBytes. The error matches ErrInputTooLarge.
func SizeLimit(maxBytes int64, opts ...SizeLimitOption) Middleware {
	cfg := &sizeLimitConfig{logger: logging.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			if size := int64(len(call.Input)); size > maxBytes {
				cfg.logger.Warn("input size limit exceeded",
					logging.F("name", call.Name),
					logging.F("size", size),
					logging.F("max", maxBytes),
				)
				return nil, errors.Wrapf(ErrInputTooLarge, "input of %d bytes exceeds %d", size, maxBytes)
			}
			return next(ctx, call)
		}
	}
}

// Common size limit presets.
const (
	KB = 1024
	MB = 1024 * 1024
)
