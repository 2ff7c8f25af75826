package pool

import (
	"context"
	"sync/atomic"
	"time"
)

// State describes where a task is in its lifecycle. Transitions are monotonic
// and one-directional: Pending -> Running -> {Completed | Failed | Cancelled},
// with Pending -> Cancelled permitted for tasks cancelled before they start.
// Exactly one terminal transition ever occurs.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the three end states.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Future is the write-once handle bridging a task's eventual outcome to any
// number of observers. It is created atomically with submission and mutated
// exactly once by the executing worker (or by cancellation before execution
// starts). After the terminal transition the stored outcome never changes and
// may be read from any goroutine without further synchronization: the write
// happens-before the close of the done channel that all readers wait on.
type Future[R any] struct {
	state atomic.Int32
	done  chan struct{}

	// Written exactly once, before done is closed.
	value R
	err   error

	// Cancellation token for the task body. cancel is invoked on
	// Cancel(true) and on ShutdownNow.
	ctx    context.Context
	cancel context.CancelFunc

	interruptRequested atomic.Bool
}

func newFuture[R any](parent context.Context) *Future[R] {
	ctx, cancel := context.WithCancel(parent)
	return &Future[R]{
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Get blocks until the task reaches a terminal state and returns its value.
// A stored failure is returned wrapped in *TaskError, preserving the original
// cause for errors.Is/errors.As. A cancelled task yields ErrCancelled. Get is
// safe to call from any number of goroutines, before or after completion, and
// always returns the identical outcome.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.outcome()
}

// GetWithTimeout is Get with a deadline. If the task has not reached a
// terminal state within d it returns ErrGetTimeout. Timing out does not
// cancel the task; it may still complete later and Get remains usable.
func (f *Future[R]) GetWithTimeout(d time.Duration) (R, error) {
	select {
	case <-f.done:
		return f.outcome()
	case <-time.After(d):
		var zero R
		return zero, ErrGetTimeout
	}
}

// GetWithContext is Get bounded by a caller-supplied context.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.outcome()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the outcome without blocking. The final return value reports
// whether the task had reached a terminal state at the time of the call.
func (f *Future[R]) TryGet() (R, error, bool) {
	select {
	case <-f.done:
		v, err := f.outcome()
		return v, err, true
	default:
		var zero R
		return zero, nil, false
	}
}

// Done returns a channel closed when the task reaches a terminal state.
// Useful in select statements alongside other events.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// State returns the current lifecycle state without blocking.
func (f *Future[R]) State() State {
	return State(f.state.Load())
}

// IsDone reports whether the task has reached any terminal state.
func (f *Future[R]) IsDone() bool {
	return f.State().Terminal()
}

// IsCancelled reports whether the task ended in the Cancelled state.
func (f *Future[R]) IsCancelled() bool {
	return f.State() == StateCancelled
}

// Cancel attempts to cancel the task. A task still pending is atomically
// transitioned to Cancelled and will never execute. A running task is only
// affected when mayInterrupt is true: its context is cancelled and the body
// is expected to unwind at its next interruption-safe point. Whether such a
// task ends Cancelled or Completed depends on whether it observes the signal
// before finishing naturally; exactly one terminal state is ever recorded.
//
// Cancel returns whether the call had any effect. Cancelling an already
// terminal handle is a no-op returning false.
func (f *Future[R]) Cancel(mayInterrupt bool) bool {
	if f.state.CompareAndSwap(int32(StatePending), int32(StateCancelled)) {
		f.err = ErrCancelled
		f.cancel()
		close(f.done)
		return true
	}

	if State(f.state.Load()) == StateRunning && mayInterrupt {
		if f.interruptRequested.CompareAndSwap(false, true) {
			f.cancel()
			return true
		}
	}
	return false
}

// markRunning is called by the worker that dequeued the task. It fails when
// the task was cancelled before execution started, in which case the worker
// discards the entry.
func (f *Future[R]) markRunning() bool {
	return f.state.CompareAndSwap(int32(StatePending), int32(StateRunning))
}

// complete publishes a successful outcome. The value write precedes the state
// transition and the close, so every observer woken by done sees it.
func (f *Future[R]) complete(v R) bool {
	f.value = v
	if !f.state.CompareAndSwap(int32(StateRunning), int32(StateCompleted)) {
		return false
	}
	f.cancel()
	close(f.done)
	return true
}

// fail publishes a failure, wrapping the cause in *TaskError.
func (f *Future[R]) fail(cause error) bool {
	f.err = &TaskError{Cause: cause}
	if !f.state.CompareAndSwap(int32(StateRunning), int32(StateFailed)) {
		return false
	}
	f.cancel()
	close(f.done)
	return true
}

// finishCancelled records a cooperative cancellation observed mid-flight:
// the body returned after the interrupt was delivered.
func (f *Future[R]) finishCancelled() bool {
	f.err = ErrCancelled
	if !f.state.CompareAndSwap(int32(StateRunning), int32(StateCancelled)) {
		return false
	}
	f.cancel()
	close(f.done)
	return true
}

// rejectPending fails a handle whose task never reached a worker, e.g. a
// scheduled firing the pool refused to admit.
func (f *Future[R]) rejectPending(cause error) bool {
	if !f.state.CompareAndSwap(int32(StatePending), int32(StateFailed)) {
		return false
	}
	f.err = cause
	f.cancel()
	close(f.done)
	return true
}

func (f *Future[R]) outcome() (R, error) {
	if State(f.state.Load()) == StateCancelled {
		var zero R
		return zero, ErrCancelled
	}
	return f.value, f.err
}
