package volume

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Dispatcher executes transfers on a bounded pool of goroutines so a volume
// can complete requests after Submit returns. The callback contract stays
// the same either way; callers must not assume completion timing.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc

	// Semaphore to limit the number of in-flight transfers.
	sem *semaphore.Weighted

	wg sync.WaitGroup
}

func NewDispatcher(ctx context.Context, workers int64) *Dispatcher {
	ctx, cancel := context.WithCancel(ctx)

	return &Dispatcher{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(workers),
	}
}

// dispatch blocks while the pool is saturated, which backpressures
// submitters instead of queueing unboundedly.
func (d *Dispatcher) dispatch(run func()) error {
	err := d.sem.Acquire(d.ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to acquire dispatch slot: %w", err)
	}

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		run()
	}()

	return nil
}

// Close stops accepting work and waits for in-flight transfers to complete.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
