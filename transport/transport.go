package transport

import (
	"context"

	"github.com/GordonDrop/mcpkit/middleware"
)

// Transport moves envelopes between clients and an invoker.
type Transport interface {
	// Start serves requests until the input ends, Stop is called, or ctx
	// is canceled. It may be called once.
	Start(ctx context.Context, invoke middleware.InvokeFn) error
	// Stop stops accepting input. It is safe to call more than once and
	// does not cancel calls already in flight.
	Stop() error
	// Name describes the transport.
	Name() string
}
