// Package executor implements a bounded, work-stealing-style executor
// used exclusively for I/O-bound fan-out: directory walks, archive
// extraction, digesting, and remote fetches (spec §4.5). It is a
// per-invocation value owned by the orchestrator's lifetime, never a
// process-wide singleton (spec §9).
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/metrics"
)

// DefaultMinWorkers and DefaultMaxWorkers bound the size computed from
// clamp(8*cpuCount, 4, 80) (spec §4.5).
const (
	DefaultMinWorkers = 4
	DefaultMaxWorkers = 80
)

// Task is a unit of work submitted to the pool. It should check ctx
// periodically (or perform cancellable I/O) to cooperate with shutdown.
type Task func(ctx context.Context) (any, error)

// Handle is a submitted task's future; it resolves once the task has
// finished, and its result is read through AwaitAll (or Handle.Wait).
type Handle struct {
	index int
	done  chan struct{}
	value any
	err   error
}

// Wait blocks until this handle's task has completed and returns its
// result or error.
func (h *Handle) Wait() (any, error) {
	<-h.done
	return h.value, h.err
}

// Pool is a fixed-size pool of goroutines draining a shared work queue.
type Pool struct {
	size    int
	tasks   chan func()
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	ctx     context.Context
	closed  bool
	mu      sync.Mutex
}

// Size computes clamp(8*cpuCount, min, max) unless overridden by
// explicit config (spec §4.5).
func Size(cpuCount int) int {
	n := 8 * cpuCount
	if n < DefaultMinWorkers {
		n = DefaultMinWorkers
	}
	if n > DefaultMaxWorkers {
		n = DefaultMaxWorkers
	}
	return n
}

// New creates a pool with the given worker count, deriving its lifetime
// context from parent. Pass size <= 0 to use Size(runtime.NumCPU()).
func New(parent context.Context, size int) *Pool {
	if size <= 0 {
		size = Size(runtime.NumCPU())
	}
	ctx, cancel := context.WithCancel(parent)
	p := &Pool{
		size:   size,
		tasks:  make(chan func()),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case fn, ok := <-p.tasks:
			if !ok {
				return
			}
			metrics.ExecutorInFlight.Inc()
			fn()
			metrics.ExecutorInFlight.Dec()
		}
	}
}

// Submit schedules task and returns a Handle resolving with its result.
// Submitting after Shutdown has been called reports the handle as
// cancelled without panicking.
func (p *Pool) Submit(task Task) *Handle {
	h := &Handle{done: make(chan struct{})}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		h.err = context.Canceled
		close(h.done)
		return h
	}

	fn := func() {
		defer close(h.done)
		v, err := task(p.ctx)
		h.value, h.err = v, err
	}

	select {
	case p.tasks <- fn:
	case <-p.ctx.Done():
		// Pool is shutting down; report as cancelled rather than block forever.
		h.err = context.Canceled
		close(h.done)
	}
	return h
}

// AwaitAll waits for every handle and returns results in submission order
// on full success. If any task failed, it returns an aggregated
// *errs.MultipleFailures whose primary cause is the first submitted
// failing task and whose suppressed causes are sorted by submission index
// (spec §4.5 "Ordering").
func AwaitAll(handles []*Handle) ([]any, error) {
	results := make([]any, len(handles))
	type failure struct {
		index int
		err   error
	}
	var failures []failure

	for i, h := range handles {
		v, err := h.Wait()
		results[i] = v
		if err != nil {
			failures = append(failures, failure{index: i, err: err})
		}
	}

	if len(failures) == 0 {
		return results, nil
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].index < failures[j].index })
	errList := make([]error, len(failures))
	for i, f := range failures {
		errList[i] = fmt.Errorf("task %d: %w", f.index, f.err)
	}
	return results, errs.NewMultipleFailures(errList)
}

// Shutdown cancels every outstanding task via context cancellation and
// waits for workers to exit. Cooperative tasks stop promptly; a task that
// has already completed between cancellation and collection is reported
// normally by AwaitAll (its Handle.done is already closed).
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}
