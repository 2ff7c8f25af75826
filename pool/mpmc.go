package pool

import (
	"runtime"
	"sync/atomic"
	"time"
)

const (
	// Cache line padding to keep head and tail on separate lines.
	cacheLinePadding = 128
	// Spin attempts before parking on the notification channel.
	maxSpinAttempts = 10
)

// ringSlot is a single slot of the MPMC ring. The sequence number implements
// the slot handshake: producers claim a slot whose sequence equals the tail,
// consumers a slot whose sequence equals head+1.
type ringSlot[R any] struct {
	sequence uint64
	task     *taskEntry[R]
	_        [cacheLinePadding - 16]byte
}

// ringQueue is a bounded lock-free multi-producer multi-consumer work queue,
// selectable via WithLockFreeQueue for submission-heavy pools. It trades the
// channel backend's simplicity for lower contention on the hot path while
// keeping the same workQueue contract, including timed offers and shutdown
// draining.
type ringQueue[R any] struct {
	ring []ringSlot[R]
	mask uint64

	_    [cacheLinePadding]byte
	head uint64
	_    [cacheLinePadding - 8]byte
	tail uint64
	_    [cacheLinePadding - 8]byte

	closed atomic.Bool

	// Buffered task notification; never closed.
	notifyC chan struct{}
	// Space notification for blocked producers; never closed.
	spaceC chan struct{}
	// Closed on shutdown to release parked producers and consumers.
	closeC chan struct{}

	capacity int
}

func newRingQueue[R any](capacity int) *ringQueue[R] {
	capacity = nextPowerOfTwo(capacity)
	ring := make([]ringSlot[R], capacity)
	for i := range ring {
		ring[i].sequence = uint64(i)
	}

	return &ringQueue[R]{
		ring:     ring,
		mask:     uint64(capacity - 1),
		capacity: capacity,
		notifyC:  make(chan struct{}, 1),
		spaceC:   make(chan struct{}, 1),
		closeC:   make(chan struct{}),
	}
}

func (q *ringQueue[R]) Offer(t *taskEntry[R], timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	spins := 0

	for {
		if q.closed.Load() {
			return ErrQueueClosed
		}

		tail := atomic.LoadUint64(&q.tail)
		slot := &q.ring[tail&q.mask]
		seq := atomic.LoadUint64(&slot.sequence)
		diff := int64(seq) - int64(tail)

		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				slot.task = t
				atomic.StoreUint64(&slot.sequence, tail+1)
				signal(q.notifyC)
				return nil
			}

		case diff < 0:
			// Ring is full.
			if timeout <= 0 {
				return ErrQueueFull
			}
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrQueueFull
			}
			timer := time.NewTimer(remaining)
			select {
			case <-q.spaceC:
				timer.Stop()
			case <-q.closeC:
				timer.Stop()
				return ErrQueueClosed
			case <-timer.C:
				return ErrQueueFull
			}

		default:
			spins++
			if spins > maxSpinAttempts {
				runtime.Gosched()
				spins = 0
			}
		}
	}
}

func (q *ringQueue[R]) Put(t *taskEntry[R]) error {
	for {
		err := q.Offer(t, foreverPoll)
		if err != ErrQueueFull {
			return err
		}
	}
}

func (q *ringQueue[R]) Take(idleTimeout time.Duration) (*taskEntry[R], bool, error) {
	var deadline time.Time
	if idleTimeout > 0 {
		deadline = time.Now().Add(idleTimeout)
	}
	spins := 0

	for {
		if t, ok := q.Poll(); ok {
			return t, true, nil
		}

		if q.drainedAfterClose() {
			return nil, false, ErrQueueClosed
		}

		spins++
		if spins < maxSpinAttempts {
			runtime.Gosched()
			continue
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
		case <-q.notifyC:
			timer.Stop()
			spins = 0
		case <-q.closeC:
			timer.Stop()
			spins = 0
			// Re-poll to drain anything published before the close.
		case <-timer.C:
			return nil, false, nil
		}
	}
}

// Poll attempts a single dequeue without blocking.
func (q *ringQueue[R]) Poll() (*taskEntry[R], bool) {
	for {
		head := atomic.LoadUint64(&q.head)
		slot := &q.ring[head&q.mask]
		seq := atomic.LoadUint64(&slot.sequence)
		diff := int64(seq) - int64(head+1)

		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
				t := slot.task
				slot.task = nil
				// Release the slot to producers: next expected sequence
				// for this slot is head + capacity.
				atomic.StoreUint64(&slot.sequence, head+q.mask+1)
				signal(q.spaceC)
				return t, true
			}

		case diff < 0:
			return nil, false

		default:
			// A producer claimed the slot but has not published yet.
			runtime.Gosched()
		}
	}
}

func (q *ringQueue[R]) Drain() []*taskEntry[R] {
	var drained []*taskEntry[R]
	for {
		t, ok := q.Poll()
		if !ok {
			return drained
		}
		drained = append(drained, t)
	}
}

func (q *ringQueue[R]) Len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if tail > head {
		return int(tail - head)
	}
	return 0
}

func (q *ringQueue[R]) Cap() int { return q.capacity }

func (q *ringQueue[R]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.closeC)
	}
}

func (q *ringQueue[R]) drainedAfterClose() bool {
	if !q.closed.Load() {
		return false
	}
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	return head >= tail
}

// nextPowerOfTwo returns the next power of 2 >= n.
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}
	power := 1
	for power < n {
		power *= 2
	}
	return power
}
