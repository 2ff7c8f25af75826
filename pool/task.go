package pool

import (
	"context"
)

// Callable is a unit of work that produces a value or fails with an error.
// The context passed to it is the task's cancellation token: it is cancelled
// when the task's Future is cancelled with interruption, or when the pool is
// force-stopped. Task bodies that block or loop should observe ctx.Done() at
// safe points; a body that ignores it simply runs to natural completion even
// if the handle is already marked cancelled.
type Callable[R any] func(ctx context.Context) (R, error)

// Runnable is a fire-and-forget unit of work used with Execute. Failures do
// not surface to the submitter; they are delivered to the pool's failure
// observer (see WithFailureObserver).
type Runnable func(ctx context.Context) error

// taskEntry is the internal record that travels through the work queue.
// It is created at submission, owned by the queue while pending, owned by
// exactly one worker during execution, and discarded once the outcome has
// been published to its future.
type taskEntry[R any] struct {
	// Monotonically increasing per-pool sequence number. Breaks priority
	// ties in submission order and aids debugging.
	seq uint64

	run    Callable[R]
	future *Future[R]

	// Priority computed at submission when priority ordering is configured.
	// Lower values run first.
	priority int

	// Set for Execute submissions: nobody holds the future, so failures are
	// routed to the pool's failure observer.
	fireAndForget bool
}
