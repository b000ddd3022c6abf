package chat

import (
	"context"
	"time"
)

// defaultTypingInterval refreshes the indicator before Telegram's ~5s
// typing-status expiry.
const defaultTypingInterval = 4 * time.Second

// keepAlive periodically emits a processing signal while an LLM call is in
// flight. It is created per request, cancelled by the owning pipeline, and
// joined on Stop so no signal can fire after the pipeline returns.
type keepAlive struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startKeepAlive fires signal immediately, then every interval until Stop is
// called or ctx is cancelled. signal must swallow its own errors: failing to
// show "typing" must never delay or fail the primary response.
func startKeepAlive(ctx context.Context, interval time.Duration, signal func()) *keepAlive {
	if interval <= 0 {
		interval = defaultTypingInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	k := &keepAlive{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(k.done)
		signal()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				signal()
			case <-ctx.Done():
				return
			}
		}
	}()

	return k
}

// Stop cancels the loop and waits for it to exit. Idempotent.
func (k *keepAlive) Stop() {
	k.cancel()
	<-k.done
}
