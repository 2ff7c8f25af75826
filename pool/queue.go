package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// workQueue is the buffer of pending tasks shared by all workers. Three
// backends implement it:
//
//   - chanQueue: a Go channel, covering bounded FIFO and the capacity-0
//     rendezvous (direct handoff) mode.
//   - heapQueue: a mutex-guarded heap, covering the unbounded mode and
//     priority ordering with stable submission-order tie-break.
//   - ringQueue: a bounded lock-free MPMC ring (see mpmc.go).
//
// Closing a queue rejects further offers while letting takers drain what is
// already buffered; a take on a closed, empty queue returns immediately.
type workQueue[R any] interface {
	// Offer attempts to enqueue, blocking up to timeout when at capacity.
	// A zero timeout is a non-blocking try. Returns ErrQueueFull on a missed
	// deadline and ErrQueueClosed after Close.
	Offer(t *taskEntry[R], timeout time.Duration) error

	// Put blocks until space is available. The capacity bound is never
	// violated.
	Put(t *taskEntry[R]) error

	// Take blocks until a task is available: forever when idleTimeout is
	// negative, not at all when it is zero, up to idleTimeout otherwise.
	// The second result is false on timeout; the error is ErrQueueClosed
	// once the queue is closed and empty.
	Take(idleTimeout time.Duration) (*taskEntry[R], bool, error)

	// Poll removes the head without blocking. Used by the DiscardOldest
	// policy to evict the oldest pending task.
	Poll() (*taskEntry[R], bool)

	// Drain atomically removes and returns all pending tasks, so a forced
	// shutdown can report them as never started instead of losing them.
	Drain() []*taskEntry[R]

	Len() int
	Cap() int
	Close()
}

const foreverPoll = 1000 * time.Hour

// chanQueue is the default backend: a buffered channel for bounded FIFO, an
// unbuffered channel for rendezvous handoff. Channel semantics give FIFO
// order, the capacity bound, and blocked-waiter wakeup for free.
type chanQueue[R any] struct {
	ch       chan *taskEntry[R]
	closeC   chan struct{}
	closed   atomic.Bool
	capacity int
}

func newChanQueue[R any](capacity int) *chanQueue[R] {
	return &chanQueue[R]{
		ch:       make(chan *taskEntry[R], capacity),
		closeC:   make(chan struct{}),
		capacity: capacity,
	}
}

func (q *chanQueue[R]) Offer(t *taskEntry[R], timeout time.Duration) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	if timeout <= 0 {
		select {
		case q.ch <- t:
			return nil
		case <-q.closeC:
			return ErrQueueClosed
		default:
			return ErrQueueFull
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.ch <- t:
		return nil
	case <-q.closeC:
		return ErrQueueClosed
	case <-timer.C:
		return ErrQueueFull
	}
}

func (q *chanQueue[R]) Put(t *taskEntry[R]) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- t:
		return nil
	case <-q.closeC:
		return ErrQueueClosed
	}
}

func (q *chanQueue[R]) Take(idleTimeout time.Duration) (*taskEntry[R], bool, error) {
	// Buffered tasks must still drain after close, so try a non-blocking
	// receive before consulting closeC.
	select {
	case t := <-q.ch:
		return t, true, nil
	default:
	}

	if q.closed.Load() {
		// One more attempt: a send may have raced the close.
		select {
		case t := <-q.ch:
			return t, true, nil
		default:
			return nil, false, ErrQueueClosed
		}
	}

	if idleTimeout == 0 {
		return nil, false, nil
	}
	if idleTimeout < 0 {
		idleTimeout = foreverPoll
	}
	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()

	select {
	case t := <-q.ch:
		return t, true, nil
	case <-q.closeC:
		select {
		case t := <-q.ch:
			return t, true, nil
		default:
			return nil, false, ErrQueueClosed
		}
	case <-timer.C:
		return nil, false, nil
	}
}

func (q *chanQueue[R]) Poll() (*taskEntry[R], bool) {
	select {
	case t := <-q.ch:
		return t, true
	default:
		return nil, false
	}
}

func (q *chanQueue[R]) Drain() []*taskEntry[R] {
	var drained []*taskEntry[R]
	for {
		select {
		case t := <-q.ch:
			drained = append(drained, t)
		default:
			return drained
		}
	}
}

func (q *chanQueue[R]) Len() int { return len(q.ch) }
func (q *chanQueue[R]) Cap() int { return q.capacity }

func (q *chanQueue[R]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.closeC)
	}
}

// heapQueue orders pending tasks by (priority, sequence) under a mutex and
// hands them to waiting workers through a chained wakeup signal: every
// successful pop re-arms the signal while tasks remain, so no waiter sleeps
// through a non-empty queue. With no priority function it degrades to plain
// FIFO because sequence numbers alone decide the order.
type heapQueue[R any] struct {
	mu   sync.Mutex
	heap taskHeap[R]

	capacity int // <= 0 means unbounded

	taskSignal  chan struct{}
	spaceSignal chan struct{}
	closeC      chan struct{}
	closed      atomic.Bool
}

func newHeapQueue[R any](capacity int, byPriority bool) *heapQueue[R] {
	return &heapQueue[R]{
		heap:        newTaskHeap[R](byPriority),
		capacity:    capacity,
		taskSignal:  make(chan struct{}, 1),
		spaceSignal: make(chan struct{}, 1),
		closeC:      make(chan struct{}),
	}
}

func (q *heapQueue[R]) Offer(t *taskEntry[R], timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if q.closed.Load() {
			return ErrQueueClosed
		}

		q.mu.Lock()
		if q.capacity <= 0 || q.heap.Len() < q.capacity {
			q.heap.push(t)
			more := q.capacity > 0 && q.heap.Len() < q.capacity
			q.mu.Unlock()
			signal(q.taskSignal)
			if more {
				signal(q.spaceSignal)
			}
			return nil
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if timeout <= 0 || remaining <= 0 {
			return ErrQueueFull
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.spaceSignal:
			timer.Stop()
		case <-q.closeC:
			timer.Stop()
			return ErrQueueClosed
		case <-timer.C:
			return ErrQueueFull
		}
	}
}

func (q *heapQueue[R]) Put(t *taskEntry[R]) error {
	for {
		err := q.Offer(t, foreverPoll)
		if err != ErrQueueFull {
			return err
		}
	}
}

func (q *heapQueue[R]) Take(idleTimeout time.Duration) (*taskEntry[R], bool, error) {
	var deadline time.Time
	if idleTimeout > 0 {
		deadline = time.Now().Add(idleTimeout)
	}

	for {
		q.mu.Lock()
		if q.heap.Len() > 0 {
			t := q.heap.pop()
			more := q.heap.Len() > 0
			q.mu.Unlock()
			if more {
				signal(q.taskSignal)
			}
			signal(q.spaceSignal)
			return t, true, nil
		}
		q.mu.Unlock()

		if q.closed.Load() {
			return nil, false, ErrQueueClosed
		}

		wait := foreverPoll
		if idleTimeout >= 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return nil, false, nil
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-q.taskSignal:
			timer.Stop()
		case <-q.closeC:
			timer.Stop()
			// Loop once more to drain anything buffered before the close.
		case <-timer.C:
			return nil, false, nil
		}
	}
}

func (q *heapQueue[R]) Poll() (*taskEntry[R], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil, false
	}
	t := q.heap.pop()
	signal(q.spaceSignal)
	return t, true
}

func (q *heapQueue[R]) Drain() []*taskEntry[R] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.drain()
}

func (q *heapQueue[R]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

func (q *heapQueue[R]) Cap() int { return q.capacity }

func (q *heapQueue[R]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.closeC)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
