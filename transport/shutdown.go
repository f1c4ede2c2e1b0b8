package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout bounds the wait for in-flight requests. Default: 30 seconds.
	Timeout time.Duration

	// DrainDelay is waited before new requests are refused, so load
	// balancers can take the server out of rotation.
	DrainDelay time.Duration

	// PollInterval is how often the in-flight count is checked.
	// Default: 50ms.
	PollInterval time.Duration

	OnDrainStart       func()
	OnShutdownComplete func(err error)
}

// DefaultShutdownConfig returns the default shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout:      30 * time.Second,
		PollInterval: 50 * time.Millisecond,
	}
}

// ShutdownManager counts in-flight requests and drains them on shutdown.
type ShutdownManager struct {
	config ShutdownConfig

	draining  atomic.Bool
	inFlight  atomic.Int64
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewShutdownManager creates a new shutdown manager.
func NewShutdownManager(config ShutdownConfig) *ShutdownManager {
	defaults := DefaultShutdownConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	return &ShutdownManager{
		config: config,
		doneCh: make(chan struct{}),
	}
}

// IsDraining reports whether new requests are being refused.
func (sm *ShutdownManager) IsDraining() bool {
	return sm.draining.Load()
}

// InFlightRequests returns the number of tracked requests.
func (sm *ShutdownManager) InFlightRequests() int64 {
	return sm.inFlight.Load()
}

// TrackRequest registers a new request. It returns false once draining
// has started; the caller must then refuse the request.
func (sm *ShutdownManager) TrackRequest() bool {
	if sm.draining.Load() {
		return false
	}
	sm.inFlight.Add(1)
	return true
}

// CompleteRequest unregisters a request accepted by TrackRequest.
func (sm *ShutdownManager) CompleteRequest() {
	sm.inFlight.Add(-1)
}

// Shutdown refuses new requests and waits for in-flight ones, up to the
// configured timeout. It returns the context error when requests were
// still running at the deadline.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	if sm.config.DrainDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sm.config.DrainDelay):
		}
	}

	sm.draining.Store(true)
	if sm.config.OnDrainStart != nil {
		sm.config.OnDrainStart()
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.Timeout)
	defer cancel()

	err := sm.waitIdle(ctx)
	sm.closeOnce.Do(func() { close(sm.doneCh) })
	if sm.config.OnShutdownComplete != nil {
		sm.config.OnShutdownComplete(err)
	}
	return err
}

func (sm *ShutdownManager) waitIdle(ctx context.Context) error {
	if sm.inFlight.Load() == 0 {
		return nil
	}
	ticker := time.NewTicker(sm.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if sm.inFlight.Load() > 0 {
				return ctx.Err()
			}
			return nil
		case <-ticker.C:
			if sm.inFlight.Load() == 0 {
				return nil
			}
		}
	}
}

// Done returns a channel that is closed when shutdown is complete.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.doneCh
}

// WithShutdownTimeout sets how long the HTTP transport waits for
// in-flight requests when stopping.
func WithShutdownTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.shutdownTimeout = d
	}
}

// WithShutdownDrainDelay sets the drain delay for HTTP transport.
func WithShutdownDrainDelay(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.drainDelay = d
	}
}
