package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolSaturated is returned by Submit under the Abort policy when both
	// the queue and the worker set are at capacity. The task was never run;
	// callers may retry, back off, or take an alternate path.
	ErrPoolSaturated = errors.New("pool saturated: task rejected")

	// ErrPoolShutdown is returned for any submission after Shutdown or
	// ShutdownNow, regardless of the configured rejection policy.
	ErrPoolShutdown = errors.New("pool is shut down")

	// ErrCancelled is returned from Future.Get when the task was cancelled,
	// either before it started or via a cooperative interrupt it observed.
	ErrCancelled = errors.New("task cancelled")

	// ErrGetTimeout is returned from Future.GetWithTimeout when the deadline
	// elapses before the task reaches a terminal state. The task itself is
	// unaffected and may still complete later.
	ErrGetTimeout = errors.New("timed out waiting for result")

	// ErrInvalidConfig wraps all constructor-time validation failures.
	ErrInvalidConfig = errors.New("invalid pool configuration")

	// ErrQueueFull is reported by queue backends when a bounded queue cannot
	// accept a task within the offer timeout.
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is reported by queue backends once the pool has begun
	// shutting down and the queue no longer accepts tasks.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrShutdownTimeout is returned by AwaitTermination helpers when workers
	// do not exit within the grace period.
	ErrShutdownTimeout = errors.New("timeout reached before pool terminated")
)

// TaskError wraps an error raised by a task body. It is stored in the task's
// Future and surfaces only through Get; it never propagates into the worker's
// own control flow.
type TaskError struct {
	Cause error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task failed: %v", e.Cause)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// PanicError is the cause stored when a task body panics. The worker recovers,
// captures the panic value together with the stack, and keeps running.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panic: %v\nstack trace:\n%s", e.Value, e.Stack)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
