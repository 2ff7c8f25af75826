package pool

// RejectionPolicy decides the fate of a task that cannot be admitted because
// the queue and the worker set are both saturated. The set of policies is
// closed: exactly the four named strategies below, selected per pool via
// WithRejectionPolicy. A policy is invoked exactly once per rejected
// submission, on the submitting goroutine.
type RejectionPolicy interface {
	Name() string
}

type rejectionPolicy int

func (p rejectionPolicy) Name() string {
	switch p {
	case Abort:
		return "abort"
	case CallerRuns:
		return "caller-runs"
	case Discard:
		return "discard"
	case DiscardOldest:
		return "discard-oldest"
	default:
		return "unknown"
	}
}

const (
	// Abort reports the saturation to the submitter: Submit returns
	// ErrPoolSaturated and the task is never run.
	Abort rejectionPolicy = iota

	// CallerRuns executes the task synchronously on the submitting
	// goroutine, providing natural backpressure: the submitter is busy for
	// the task's duration instead of the pool growing without bound. Safe as
	// long as the submitter is not itself a pool worker.
	CallerRuns

	// Discard drops the task silently. Submission reports success and the
	// task's handle transitions to Cancelled. Use only when losing work is
	// acceptable.
	Discard

	// DiscardOldest evicts the head of the queue (its handle transitions to
	// Cancelled) to make room, then offers the new task again. If the slot
	// is snatched by a concurrent submitter, the new task is dropped like
	// Discard; the policy never runs twice for one submission.
	DiscardOldest
)
