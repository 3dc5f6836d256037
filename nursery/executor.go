package nursery

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs submitted work "soon" on some goroutine. Two submissions carry
// no ordering guarantee.
type Executor interface {
	Submit(ctx context.Context, work func(ctx context.Context))
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, work func(ctx context.Context))

func (f ExecutorFunc) Submit(ctx context.Context, work func(ctx context.Context)) { f(ctx, work) }

// Inline runs work on the submitting goroutine before Submit returns.
var Inline Executor = ExecutorFunc(func(ctx context.Context, work func(context.Context)) { work(ctx) })

var defaultExecutor = sync.OnceValue(func() *PoolExecutor { return NewPoolExecutor(true) })

// DefaultExecutor returns the process-wide executor used by scopes created
// without WithExecutor.
func DefaultExecutor() Executor { return defaultExecutor() }

// PoolExecutor schedules work on the Go runtime's goroutine pool.
//
// With preferLocal set, every submission starts its own goroutine from the
// submitter, which the runtime queues next to the submitting goroutine.
// Otherwise work goes to a shared FIFO drained by at most GOMAXPROCS reusable
// workers. When every worker is busy, the item runs on a goroutine of its own
// instead of waiting, so queued work never depends on running work finishing.
// Workers exit as soon as the queue is empty.
type PoolExecutor struct {
	preferLocal bool

	mu      sync.Mutex
	queue   []queued
	idle    int // live workers not running an item
	workers *semaphore.Weighted
}

type queued struct {
	ctx  context.Context
	work func(context.Context)
}

func NewPoolExecutor(preferLocal bool) *PoolExecutor {
	return &PoolExecutor{
		preferLocal: preferLocal,
		workers:     semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// PreferLocal reports the locality preference the executor was built with.
func (p *PoolExecutor) PreferLocal() bool { return p.preferLocal }

func (p *PoolExecutor) Submit(ctx context.Context, work func(ctx context.Context)) {
	if p.preferLocal {
		go work(ctx)
		return
	}
	// Invariant under mu: idle >= len(queue), so every queued item has an
	// idle worker about to take it.
	p.mu.Lock()
	switch {
	case p.idle > len(p.queue):
		p.queue = append(p.queue, queued{ctx: ctx, work: work})
		p.mu.Unlock()
	case p.workers.TryAcquire(1):
		p.idle++
		p.queue = append(p.queue, queued{ctx: ctx, work: work})
		p.mu.Unlock()
		go p.drain()
	default:
		p.mu.Unlock()
		go work(ctx)
	}
}

func (p *PoolExecutor) drain() {
	p.mu.Lock()
	for len(p.queue) > 0 {
		q := p.queue[0]
		p.queue[0] = queued{}
		p.queue = p.queue[1:]
		p.idle--
		p.mu.Unlock()

		q.work(q.ctx)

		p.mu.Lock()
		p.idle++
	}
	p.idle--
	p.workers.Release(1)
	p.mu.Unlock()
}

// Pending returns the number of items waiting in the shared queue.
func (p *PoolExecutor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
