package transport

import (
	"context"
	"testing"
	"time"
)

func TestShutdownManager_TrackRequest(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig())

	if !sm.TrackRequest() {
		t.Fatal("expected request to be accepted")
	}
	if got := sm.InFlightRequests(); got != 1 {
		t.Errorf("in-flight = %d, want 1", got)
	}

	sm.CompleteRequest()
	if got := sm.InFlightRequests(); got != 0 {
		t.Errorf("in-flight = %d, want 0", got)
	}
}

func TestShutdownManager_RejectsWhileDraining(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{Timeout: 100 * time.Millisecond})

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	if !sm.IsDraining() {
		t.Error("expected manager to be draining")
	}
	if sm.TrackRequest() {
		t.Error("expected request to be rejected while draining")
	}
}

func TestShutdownManager_WaitsForInFlight(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{Timeout: 2 * time.Second})

	sm.TrackRequest()

	go func() {
		time.Sleep(100 * time.Millisecond)
		sm.CompleteRequest()
	}()

	start := time.Now()
	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("shutdown returned after %v, expected it to wait for in-flight request", elapsed)
	}
}

func TestShutdownManager_TimeoutWithStuckRequest(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{Timeout: 100 * time.Millisecond})

	sm.TrackRequest() // never completed

	if err := sm.Shutdown(context.Background()); err == nil {
		t.Error("expected timeout error with a stuck request")
	}
}

func TestShutdownManager_Callbacks(t *testing.T) {
	var started, drained, completed bool

	sm := NewShutdownManager(ShutdownConfig{
		Timeout:            100 * time.Millisecond,
		OnShutdownStart:    func() { started = true },
		OnDrainStart:       func() { drained = true },
		OnShutdownComplete: func(err error) { completed = true },
	})

	_ = sm.Shutdown(context.Background())

	if !started || !drained || !completed {
		t.Errorf("callbacks = start:%v drain:%v complete:%v, want all true", started, drained, completed)
	}

	select {
	case <-sm.Done():
	default:
		t.Error("expected Done channel to be closed")
	}
}
