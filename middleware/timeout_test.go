package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeout(t *testing.T) {
	t.Run("sets deadline", func(t *testing.T) {
		var hasDeadline bool
		_, _ = Timeout(time.Second)(func(ctx context.Context, _ *CallCtx) (*CallResult, error) {
			_, hasDeadline = ctx.Deadline()
			return &CallResult{}, nil
		})(context.Background(), toolCall("t"))
		if !hasDeadline {
			t.Error("expected a deadline on the context")
		}
	})

	t.Run("slow handler sees deadline exceeded", func(t *testing.T) {
		handler := Timeout(10 * time.Millisecond)(func(ctx context.Context, _ *CallCtx) (*CallResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return &CallResult{Content: "late"}, nil
			}
		})

		_, err := handler(context.Background(), toolCall("t"))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want context.DeadlineExceeded", err)
		}
	})
}
