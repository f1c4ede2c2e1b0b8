package middleware

import (
	"context"

	"github.com/GordonDrop/mcpkit/logging"
)

// Logging returns middleware that logs each call. Successful calls are
// logged at info level, error results at warn and thrown errors at error.
func Logging(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			res, err := next(ctx, call)

			fields := []logging.Field{
				logging.F("type", call.Type.String()),
				logging.F("name", call.Name),
				logging.F("duration", call.Elapsed()),
			}
			if requestID := RequestIDFromContext(ctx); requestID != "" {
				fields = append(fields, logging.F("request_id", requestID))
			}

			switch {
			case err != nil:
				fields = append(fields, logging.Err(err))
				logger.Error("call failed", fields...)
			case res != nil && res.IsError:
				logger.Warn("call returned error", fields...)
			default:
				logger.Info("call completed", fields...)
			}
			return res, err
		}
	}
}
