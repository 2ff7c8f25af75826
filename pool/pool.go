package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poolworks/executor/internal/algorithms"
)

// PoolState is the lifecycle state machine of a Pool. Transitions are
// monotonic: Running -> ShuttingDown -> Stopped -> Terminated, with
// ShuttingDown skippable by ShutdownNow. There are no reverse transitions.
type PoolState int32

const (
	PoolRunning PoolState = iota
	PoolShuttingDown
	PoolStopped
	PoolTerminated
)

func (s PoolState) String() string {
	switch s {
	case PoolRunning:
		return "running"
	case PoolShuttingDown:
		return "shutting-down"
	case PoolStopped:
		return "stopped"
	case PoolTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Pool is a bounded worker pool executing Callable[R] tasks. Workers are
// spawned lazily up to the core size, then further up to the maximum size
// when the queue is full; non-core workers exit after the keep-alive idle
// period. Saturation is handled by the configured RejectionPolicy.
//
// Admission, in order:
//  1. live workers < core size: spawn a worker that runs the task directly,
//     bypassing the queue.
//  2. otherwise try a non-blocking enqueue.
//  3. queue full and live workers < maximum size: spawn a surplus worker
//     that runs the task directly.
//  4. otherwise invoke the rejection policy.
//
// Tasks that bypass the queue (steps 1 and 3) run concurrently with, and in
// unspecified order relative to, queued tasks. Queued tasks of equal
// priority execute in FIFO order relative to each other.
type Pool[R any] struct {
	conf    *config
	queue   workQueue[R]
	backoff algorithms.Backoff

	state          atomic.Int32
	liveWorkers    atomic.Int32
	activeWorkers  atomic.Int32
	completedTasks atomic.Uint64
	rejectedTasks  atomic.Uint64
	seq            atomic.Uint64

	// Parent of every task's cancellation context; cancelled by ShutdownNow
	// to interrupt all running tasks at once.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	termOnce sync.Once
	termC    chan struct{}
}

// New creates a pool with the given options. All configuration is validated
// eagerly; an invalid combination returns an error wrapping ErrInvalidConfig
// and no workers are ever started.
func New[R any](opts ...Option) (*Pool[R], error) {
	conf := defaultConfig()
	for _, opt := range opts {
		opt(conf)
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool[R]{
		conf:       conf,
		queue:      buildQueue[R](conf),
		backoff:    buildBackoff(conf),
		baseCtx:    ctx,
		baseCancel: cancel,
		termC:      make(chan struct{}),
	}
	return p, nil
}

func buildQueue[R any](conf *config) workQueue[R] {
	switch conf.kind {
	case queueLockFree:
		return newRingQueue[R](conf.capacity)
	case queueBounded:
		if conf.usePriority {
			return newHeapQueue[R](conf.capacity, true)
		}
		return newChanQueue[R](conf.capacity)
	default:
		return newHeapQueue[R](-1, conf.usePriority)
	}
}

func buildBackoff(conf *config) algorithms.Backoff {
	if conf.maxAttempts <= 1 {
		return nil
	}
	switch conf.retryBackoff {
	case "jittered":
		return algorithms.NewJittered(conf.initialDelay, conf.maxDelay, conf.jitterFactor)
	case "fixed":
		return algorithms.Fixed(conf.initialDelay)
	default:
		return algorithms.NewExponential(conf.initialDelay, conf.maxDelay)
	}
}

// Submit hands a task to the pool and returns its Future. The call never
// blocks beyond the admission decision, except under CallerRuns where it may
// execute the task synchronously. Under the Abort policy a saturated pool
// returns ErrPoolSaturated; after shutdown every submission returns
// ErrPoolShutdown.
func (p *Pool[R]) Submit(task Callable[R]) (*Future[R], error) {
	return p.submit(task, 0, false)
}

// SubmitWithPriority is Submit with an explicit queue priority; lower values
// run first. The priority only matters with WithPriorityOrdering.
func (p *Pool[R]) SubmitWithPriority(task Callable[R], priority int) (*Future[R], error) {
	return p.submit(task, priority, false)
}

// Execute runs a fire-and-forget task. No handle is returned; a failure of
// the task body is delivered to the failure observer configured with
// WithFailureObserver. The returned error covers admission only.
func (p *Pool[R]) Execute(task Runnable) error {
	if task == nil {
		return errors.New("nil task")
	}
	_, err := p.submit(func(ctx context.Context) (R, error) {
		var zero R
		return zero, task(ctx)
	}, 0, true)
	return err
}

func (p *Pool[R]) submit(run Callable[R], priority int, fireAndForget bool) (*Future[R], error) {
	if run == nil {
		return nil, errors.New("nil task")
	}

	if p.State() != PoolRunning {
		p.rejectedTasks.Add(1)
		return nil, ErrPoolShutdown
	}

	e := &taskEntry[R]{
		seq:           p.seq.Add(1),
		run:           run,
		priority:      priority,
		future:        newFuture[R](p.baseCtx),
		fireAndForget: fireAndForget,
	}

	if err := p.admit(e); err != nil {
		return nil, err
	}
	return e.future, nil
}

// admit runs the admission algorithm for an already-built entry. It is
// shared by Submit and the scheduled layer, which pre-creates futures.
func (p *Pool[R]) admit(e *taskEntry[R]) error {
	if p.State() != PoolRunning {
		p.rejectedTasks.Add(1)
		e.future.rejectPending(ErrPoolShutdown)
		return ErrPoolShutdown
	}

	if p.spawnWorkerBelow(p.conf.coreSize, e) {
		return nil
	}

	switch err := p.queue.Offer(e, 0); {
	case err == nil:
		// Post-enqueue recheck: with a core size of 0, or after every surplus
		// worker expired on keep-alive, the task would otherwise sit in the
		// queue with nobody alive to take it.
		if p.liveWorkers.Load() == 0 {
			p.spawnWorkerBelow(p.conf.maxSize, nil)
		}
		return nil
	case errors.Is(err, ErrQueueClosed):
		// Shutdown raced the admission; the state check above saw Running.
		p.rejectedTasks.Add(1)
		e.future.rejectPending(ErrPoolShutdown)
		return ErrPoolShutdown
	}

	if p.spawnWorkerBelow(p.conf.maxSize, e) {
		return nil
	}

	return p.reject(e)
}

// spawnWorkerBelow reserves a worker slot while the live count is under
// limit and starts a worker that runs first before entering its take loop.
func (p *Pool[R]) spawnWorkerBelow(limit int, first *taskEntry[R]) bool {
	for {
		live := p.liveWorkers.Load()
		if int(live) >= limit {
			return false
		}
		if p.liveWorkers.CompareAndSwap(live, live+1) {
			go p.workerLoop(first)
			return true
		}
	}
}

func (p *Pool[R]) reject(e *taskEntry[R]) error {
	p.rejectedTasks.Add(1)
	p.conf.logger.Debug("task rejected",
		"policy", p.conf.policy.Name(), "task", e.seq, "queue_depth", p.queue.Len())

	switch p.conf.policy {
	case CallerRuns:
		p.runEntry(e, false)
		return nil

	case Discard:
		e.future.Cancel(false)
		return nil

	case DiscardOldest:
		if oldest, ok := p.queue.Poll(); ok {
			oldest.future.Cancel(false)
		}
		if err := p.queue.Offer(e, 0); err != nil {
			// The freed slot was taken by a concurrent submitter.
			e.future.Cancel(false)
		}
		return nil

	default: // Abort
		e.future.rejectPending(ErrPoolSaturated)
		return ErrPoolSaturated
	}
}

// PrestartCoreWorkers eagerly spawns idle workers up to the core size and
// returns how many were started.
func (p *Pool[R]) PrestartCoreWorkers() int {
	started := 0
	for p.State() == PoolRunning && p.spawnWorkerBelow(p.conf.coreSize, nil) {
		started++
	}
	return started
}

// State returns the pool's lifecycle state.
func (p *Pool[R]) State() PoolState {
	return PoolState(p.state.Load())
}

// Shutdown initiates a graceful shutdown: new submissions are rejected
// unconditionally, already-queued tasks run to completion, and workers exit
// once the queue drains. It returns immediately; use AwaitTermination to
// wait for the drain.
func (p *Pool[R]) Shutdown() {
	if !p.advanceTo(PoolShuttingDown) {
		return
	}
	p.conf.logger.Debug("pool shutting down", "queue_depth", p.queue.Len())
	p.queue.Close()
	p.maybeTerminate()
}

// ShutdownNow force-stops the pool: the queue is drained, every drained
// task's handle transitions to Cancelled, and all currently-running tasks
// are interrupted through their cancellation contexts. The returned futures
// are the never-started tasks, so callers can tell them apart from work that
// was already in flight.
func (p *Pool[R]) ShutdownNow() []*Future[R] {
	p.advanceTo(PoolStopped)
	p.queue.Close()

	drained := p.queue.Drain()
	neverStarted := make([]*Future[R], 0, len(drained))
	for _, e := range drained {
		e.future.Cancel(false)
		neverStarted = append(neverStarted, e.future)
	}

	// Interrupt all running tasks at once.
	p.baseCancel()

	p.conf.logger.Debug("pool stopped",
		"never_started", len(neverStarted), "active", p.activeWorkers.Load())
	p.maybeTerminate()
	return neverStarted
}

// AwaitTermination blocks until every worker has exited and the pool reaches
// Terminated, or until the timeout elapses (timeout <= 0 waits forever).
// It reports whether termination completed.
func (p *Pool[R]) AwaitTermination(timeout time.Duration) bool {
	if timeout <= 0 {
		<-p.termC
		return true
	}
	select {
	case <-p.termC:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ShutdownGraceful combines Shutdown and AwaitTermination: it initiates the
// graceful drain and waits up to timeout for it to finish, returning
// ErrShutdownTimeout when workers are still busy at the deadline.
func (p *Pool[R]) ShutdownGraceful(timeout time.Duration) error {
	p.Shutdown()
	if !p.AwaitTermination(timeout) {
		return ErrShutdownTimeout
	}
	return nil
}

// Terminated returns a channel closed when the pool reaches Terminated.
func (p *Pool[R]) Terminated() <-chan struct{} {
	return p.termC
}

// advanceTo moves the state machine forward to s. It returns false when the
// pool is already at or past s; states never move backwards.
func (p *Pool[R]) advanceTo(s PoolState) bool {
	for {
		cur := p.state.Load()
		if cur >= int32(s) {
			return false
		}
		if p.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

// maybeTerminate promotes the pool to Terminated once shutdown has begun,
// no workers remain, and nothing is left in the queue.
func (p *Pool[R]) maybeTerminate() {
	if p.State() < PoolShuttingDown {
		return
	}
	if p.liveWorkers.Load() != 0 || p.queue.Len() != 0 {
		return
	}
	if p.advanceTo(PoolTerminated) {
		p.baseCancel()
		p.conf.logger.Debug("pool terminated", "completed", p.completedTasks.Load())
	}
	p.termOnce.Do(func() { close(p.termC) })
}
