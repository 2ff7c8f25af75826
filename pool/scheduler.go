package pool

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// ScheduledPool runs tasks after a delay or periodically, executing them on
// an embedded Pool. A single goroutine owns a min-heap of pending firings and
// one timer armed for the earliest of them; scheduling an earlier firing
// wakes the loop to re-arm. Firings are handed to the pool through the normal
// admission path, so a saturated pool applies its rejection policy to
// scheduled work like any other.
type ScheduledPool[R any] struct {
	pool *Pool[R]

	mu      sync.Mutex
	timings firingHeap
	seq     uint64

	wakeC    chan struct{}
	stopC    chan struct{}
	stopOnce sync.Once
}

// firing is one pending timer event.
type firing struct {
	at   time.Time
	seq  uint64
	fire func(now time.Time)
}

type firingHeap []*firing

func (h firingHeap) Len() int { return len(h) }
func (h firingHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h firingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *firingHeap) Push(x any)   { *h = append(*h, x.(*firing)) }
func (h *firingHeap) Pop() any {
	old := *h
	n := len(old)
	f := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return f
}

// NewScheduled creates a scheduling pool. The options configure the embedded
// Pool; the timer loop itself needs none.
func NewScheduled[R any](opts ...Option) (*ScheduledPool[R], error) {
	p, err := New[R](opts...)
	if err != nil {
		return nil, err
	}
	sp := &ScheduledPool[R]{
		pool:  p,
		wakeC: make(chan struct{}, 1),
		stopC: make(chan struct{}),
	}
	go sp.timerLoop()
	return sp, nil
}

// Pool returns the embedded executor, usable for immediate submissions
// alongside scheduled ones.
func (sp *ScheduledPool[R]) Pool() *Pool[R] { return sp.pool }

// Schedule runs task once after delay. The returned Future is live
// immediately: it can be cancelled before the timer fires, in which case the
// task never reaches the pool. A non-positive delay fires on the next loop
// iteration.
func (sp *ScheduledPool[R]) Schedule(task Callable[R], delay time.Duration) (*Future[R], error) {
	if sp.pool.State() != PoolRunning {
		return nil, ErrPoolShutdown
	}

	e := &taskEntry[R]{
		seq:    sp.pool.seq.Add(1),
		run:    task,
		future: newFuture[R](sp.pool.baseCtx),
	}

	sp.push(time.Now().Add(delay), func(time.Time) {
		if e.future.State() != StatePending {
			return
		}
		// Admission runs off the timer goroutine: under CallerRuns it may
		// execute the body, and one slow firing must not stall every other
		// schedule.
		go func() { _ = sp.pool.admit(e) }()
	})
	return e.future, nil
}

// ScheduleAtFixedRate runs task periodically with fire times advancing by
// exact multiples of period from the schedule's origin. Executions never
// overlap: when one runs past its successor's slot, the missed firings run
// back to back after it finishes until the schedule has caught up, one
// execution per slot and none skipped. The task stops permanently on its
// first failure, on Cancel, and on pool shutdown.
func (sp *ScheduledPool[R]) ScheduleAtFixedRate(task Callable[R], initialDelay, period time.Duration) (*ScheduledTask[R], error) {
	return sp.schedulePeriodic(task, initialDelay, period, true)
}

// ScheduleWithFixedDelay runs task periodically with period measured from the
// end of one execution to the start of the next, so slow executions stretch
// the cycle instead of compressing the idle gap.
func (sp *ScheduledPool[R]) ScheduleWithFixedDelay(task Callable[R], initialDelay, period time.Duration) (*ScheduledTask[R], error) {
	return sp.schedulePeriodic(task, initialDelay, period, false)
}

func (sp *ScheduledPool[R]) schedulePeriodic(task Callable[R], initialDelay, period time.Duration, fixedRate bool) (*ScheduledTask[R], error) {
	if sp.pool.State() != PoolRunning {
		return nil, ErrPoolShutdown
	}
	if period <= 0 {
		return nil, invalidConfig("period %v must be > 0", period)
	}

	st := &ScheduledTask[R]{
		sp:        sp,
		task:      task,
		period:    period,
		fixedRate: fixedRate,
		nextFire:  time.Now().Add(initialDelay),
	}
	sp.push(st.nextFire, st.fire)
	return st, nil
}

func (sp *ScheduledPool[R]) push(at time.Time, fire func(now time.Time)) {
	sp.mu.Lock()
	sp.seq++
	f := &firing{at: at, seq: sp.seq, fire: fire}
	heap.Push(&sp.timings, f)
	earliest := sp.timings[0] == f
	sp.mu.Unlock()

	if earliest {
		signal(sp.wakeC)
	}
}

// timerLoop pops due firings and sleeps until the next one, re-arming when a
// new earliest firing arrives through wakeC.
func (sp *ScheduledPool[R]) timerLoop() {
	timer := time.NewTimer(foreverPoll)
	defer timer.Stop()

	for {
		now := time.Now()

		for {
			sp.mu.Lock()
			if sp.timings.Len() == 0 || sp.timings[0].at.After(now) {
				sp.mu.Unlock()
				break
			}
			f := heap.Pop(&sp.timings).(*firing)
			sp.mu.Unlock()
			f.fire(now)
		}

		wait := foreverPoll
		sp.mu.Lock()
		if sp.timings.Len() > 0 {
			wait = time.Until(sp.timings[0].at)
			if wait < 0 {
				wait = 0
			}
		}
		sp.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-sp.wakeC:
		case <-sp.stopC:
			return
		}
	}
}

// Shutdown stops the timer loop, dropping firings that have not fired, and
// gracefully shuts down the embedded pool. Already-admitted tasks run to
// completion.
func (sp *ScheduledPool[R]) Shutdown() {
	sp.stopOnce.Do(func() { close(sp.stopC) })
	sp.pool.Shutdown()
}

// ShutdownNow stops the timer loop and force-stops the embedded pool,
// returning the never-started futures the pool drained.
func (sp *ScheduledPool[R]) ShutdownNow() []*Future[R] {
	sp.stopOnce.Do(func() { close(sp.stopC) })
	return sp.pool.ShutdownNow()
}

// AwaitTermination waits for the embedded pool to terminate.
func (sp *ScheduledPool[R]) AwaitTermination(timeout time.Duration) bool {
	return sp.pool.AwaitTermination(timeout)
}

// ScheduledTask is the handle for a periodic schedule. It exposes the count
// of completed firings and a Cancel that stops future firings; Cancel with
// interruption also cancels the in-flight execution, if any.
type ScheduledTask[R any] struct {
	sp        *ScheduledPool[R]
	task      Callable[R]
	period    time.Duration
	fixedRate bool

	nextFire time.Time

	cancelled atomic.Bool
	fireCount atomic.Uint64

	mu      sync.Mutex
	current *Future[R]
}

// fire admits one execution and arranges the next one when it finishes.
func (st *ScheduledTask[R]) fire(now time.Time) {
	if st.cancelled.Load() {
		return
	}

	p := st.sp.pool
	e := &taskEntry[R]{
		seq:    p.seq.Add(1),
		run:    st.task,
		future: newFuture[R](p.baseCtx),
	}

	st.mu.Lock()
	st.current = e.future
	st.mu.Unlock()

	if st.cancelled.Load() {
		e.future.Cancel(false)
		return
	}

	// Admission runs off the timer goroutine: under CallerRuns it may execute
	// the body, and one slow firing must not stall every other schedule.
	go func() {
		if err := p.admit(e); err != nil {
			// Saturated or shut down: the schedule cannot make progress.
			st.cancelled.Store(true)
			return
		}
		st.afterRun(e.future)
	}()
}

func (st *ScheduledTask[R]) afterRun(f *Future[R]) {
	<-f.Done()
	if _, err := f.Get(); err != nil {
		// First failure (or cancellation) retires the schedule.
		st.cancelled.Store(true)
		return
	}

	st.fireCount.Add(1)
	if st.cancelled.Load() {
		return
	}

	if st.fixedRate {
		// Fire times advance by exact multiples of the period. After an
		// overrun the next times lie in the past, so the timer loop fires
		// them back to back (the delay clamps to zero) until the schedule
		// has caught up; missed slots are made up, never skipped.
		st.nextFire = st.nextFire.Add(st.period)
	} else {
		st.nextFire = time.Now().Add(st.period)
	}
	st.sp.push(st.nextFire, st.fire)
}

// Cancel stops future firings. With mayInterrupt the currently running
// execution, if any, is interrupted through its context as well. Returns
// false when the schedule was already cancelled.
func (st *ScheduledTask[R]) Cancel(mayInterrupt bool) bool {
	if !st.cancelled.CompareAndSwap(false, true) {
		return false
	}
	st.mu.Lock()
	cur := st.current
	st.mu.Unlock()
	if cur != nil {
		cur.Cancel(mayInterrupt)
	}
	return true
}

// IsCancelled reports whether the schedule has been retired, by Cancel, by a
// failed execution, or by pool shutdown.
func (st *ScheduledTask[R]) IsCancelled() bool { return st.cancelled.Load() }

// FireCount returns how many executions have completed successfully.
func (st *ScheduledTask[R]) FireCount() uint64 { return st.fireCount.Load() }
