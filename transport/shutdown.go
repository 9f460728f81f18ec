package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout caps how long Shutdown waits for in-flight requests.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// DrainDelay is how long to keep accepting requests after Shutdown is
	// called, for load balancers that need time to stop routing here.
	DrainDelay time.Duration

	// Lifecycle hooks, all optional.
	OnShutdownStart    func()
	OnDrainStart       func()
	OnShutdownComplete func(err error)
}

// DefaultShutdownConfig returns the defaults the WebSocket transport uses.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{Timeout: 30 * time.Second}
}

// ShutdownManager tracks in-flight requests so a shutdown can wait for
// long-running tool calls instead of cutting them off. The WebSocket
// transport registers every dispatched request with it.
type ShutdownManager struct {
	config ShutdownConfig

	draining  atomic.Bool
	inFlight  atomic.Int64
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewShutdownManager creates a manager with the given config.
func NewShutdownManager(config ShutdownConfig) *ShutdownManager {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &ShutdownManager{
		config: config,
		doneCh: make(chan struct{}),
	}
}

// IsDraining reports whether Shutdown has begun rejecting new requests.
func (sm *ShutdownManager) IsDraining() bool {
	return sm.draining.Load()
}

// InFlightRequests returns the current in-flight count.
func (sm *ShutdownManager) InFlightRequests() int64 {
	return sm.inFlight.Load()
}

// TrackRequest registers a new in-flight request. It returns false once
// draining has started, in which case the caller must reject the request.
func (sm *ShutdownManager) TrackRequest() bool {
	if sm.draining.Load() {
		return false
	}
	sm.inFlight.Add(1)
	return true
}

// CompleteRequest unregisters a request registered with TrackRequest.
func (sm *ShutdownManager) CompleteRequest() {
	sm.inFlight.Add(-1)
}

// Shutdown drains and waits. It returns nil when all in-flight requests
// completed, or the deadline error when the timeout expired with requests
// still running.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	if sm.config.OnShutdownStart != nil {
		sm.config.OnShutdownStart()
	}

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

	err := sm.awaitIdle(ctx)

	sm.closeOnce.Do(func() {
		close(sm.doneCh)
	})
	if sm.config.OnShutdownComplete != nil {
		sm.config.OnShutdownComplete(err)
	}
	return err
}

// awaitIdle polls until the in-flight count reaches zero or the shutdown
// timeout expires.
func (sm *ShutdownManager) awaitIdle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sm.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
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

// Done is closed once Shutdown finishes, for callers that shut down from
// a different goroutine than the one serving.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.doneCh
}
