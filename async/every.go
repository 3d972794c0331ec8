// Package async collects small scheduling and concurrency-control primitives
// used by the provider blockchain service's actor loop: a periodic-tick
// runner, a multi-key lock for code that must hold several named resources
// at once without imposing a fixed lock order on its callers, and a
// fan-out helper for CPU-bound batch work.
package async

import (
	"context"
	"time"
)

// RunEvery runs the given function on the provided interval, starting a new
// goroutine. The goroutine stops when the context is canceled. It is used by
// the blockchain-service actor's Run loop to drive the periodic retry of
// pending work and the named-lock registry's Clean sweep.
func RunEvery(ctx context.Context, period time.Duration, f func()) {
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f()
			case <-ctx.Done():
				return
			}
		}
	}()
}
