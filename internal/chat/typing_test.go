package chat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeepAlive_ImmediateFirstSignal(t *testing.T) {
	fired := make(chan struct{}, 1)
	k := startKeepAlive(context.Background(), time.Hour, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	defer k.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("first signal must fire immediately, not after the interval")
	}
}

func TestKeepAlive_PeriodicSignals(t *testing.T) {
	var count atomic.Int64
	k := startKeepAlive(context.Background(), 10*time.Millisecond, func() {
		count.Add(1)
	})

	time.Sleep(100 * time.Millisecond)
	k.Stop()

	if got := count.Load(); got < 3 {
		t.Errorf("expected several periodic signals, got %d", got)
	}
}

func TestKeepAlive_StopJoins(t *testing.T) {
	var count atomic.Int64
	k := startKeepAlive(context.Background(), 5*time.Millisecond, func() {
		count.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	k.Stop()
	after := count.Load()

	time.Sleep(30 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("signal fired after Stop returned: %d -> %d", after, got)
	}
}

func TestKeepAlive_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var count atomic.Int64
	k := startKeepAlive(ctx, 5*time.Millisecond, func() {
		count.Add(1)
	})

	cancel()
	// Stop must still return promptly after the parent context died.
	done := make(chan struct{})
	go func() {
		k.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after parent context cancellation")
	}
}

func TestKeepAlive_ZeroIntervalUsesDefault(t *testing.T) {
	fired := make(chan struct{}, 1)
	k := startKeepAlive(context.Background(), 0, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	defer k.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("keep-alive with zero interval must still signal immediately")
	}
}
