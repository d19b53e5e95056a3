package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// PoolMetrics tracks run pool operational metrics.
type PoolMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// ErrPoolShutdown is returned when a run is submitted to a shut-down pool.
var ErrPoolShutdown = errors.New("run pool is shut down")

// RunPool bounds the number of saga runs executing concurrently in the host
// process. Each run is single-threaded internally; the pool is what lets many
// runs share the process without one OS thread per run.
type RunPool struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics PoolMetrics
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
}

// NewRunPool creates a pool with the given max concurrency.
func NewRunPool(size int) *RunPool {
	if size <= 0 {
		size = 1
	}
	return &RunPool{
		sem:  make(chan struct{}, size),
		done: make(chan struct{}),
	}
}

// Submit enqueues a run into the pool. It blocks if the pool is at capacity
// (backpressure) and respects context cancellation while waiting. Returns
// ErrPoolShutdown if the pool has been shut down.
func (p *RunPool) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
		// Slot acquired.
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolShutdown
	}

	// Re-check closed after acquiring the slot, in case Shutdown raced.
	// wg.Add(1) MUST be inside the lock to prevent race with Shutdown's wg.Wait().
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem // release slot
		return ErrPoolShutdown
	}
	p.wg.Add(1)
	atomic.AddInt64(&p.metrics.Active, 1)
	p.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&p.metrics.Panics, 1)
				atomic.AddInt64(&p.metrics.Failed, 1)
			}
			atomic.AddInt64(&p.metrics.Active, -1)
			<-p.sem // release slot
			p.wg.Done()
		}()

		if err := fn(ctx); err != nil {
			atomic.AddInt64(&p.metrics.Failed, 1)
		} else {
			atomic.AddInt64(&p.metrics.Completed, 1)
		}
	}()

	return nil
}

// Wait blocks until all submitted runs complete.
func (p *RunPool) Wait() {
	p.wg.Wait()
}

// Shutdown gracefully stops the pool. It prevents new submissions and waits
// for all active runs to complete.
func (p *RunPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Metrics returns a snapshot of the current pool metrics.
func (p *RunPool) Metrics() PoolMetrics {
	return PoolMetrics{
		Active:    atomic.LoadInt64(&p.metrics.Active),
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panics:    atomic.LoadInt64(&p.metrics.Panics),
	}
}
