package pool

// Stats is a point-in-time snapshot of the pool's counters. All fields are
// read from atomics without blocking admission, so the snapshot is consistent
// enough for monitoring but individual fields may race each other by a task
// or two under heavy concurrency.
type Stats struct {
	State          PoolState
	LiveWorkers    int
	ActiveWorkers  int
	QueueDepth     int
	QueueCapacity  int
	CompletedTasks uint64
	RejectedTasks  uint64
}

// Stats returns the current monitoring snapshot.
func (p *Pool[R]) Stats() Stats {
	return Stats{
		State:          p.State(),
		LiveWorkers:    int(p.liveWorkers.Load()),
		ActiveWorkers:  int(p.activeWorkers.Load()),
		QueueDepth:     p.queue.Len(),
		QueueCapacity:  p.queue.Cap(),
		CompletedTasks: p.completedTasks.Load(),
		RejectedTasks:  p.rejectedTasks.Load(),
	}
}

// LiveWorkers returns the number of worker goroutines currently alive.
func (p *Pool[R]) LiveWorkers() int { return int(p.liveWorkers.Load()) }

// ActiveWorkers returns the number of workers currently executing a task.
func (p *Pool[R]) ActiveWorkers() int { return int(p.activeWorkers.Load()) }

// QueueDepth returns the number of tasks waiting in the work queue.
func (p *Pool[R]) QueueDepth() int { return p.queue.Len() }

// CompletedTasks returns how many tasks have finished executing, whether
// they completed, failed, or observed cancellation mid-flight.
func (p *Pool[R]) CompletedTasks() uint64 { return p.completedTasks.Load() }

// RejectedTasks returns how many submissions were handled by the rejection
// path, including those redirected by CallerRuns or DiscardOldest.
func (p *Pool[R]) RejectedTasks() uint64 { return p.rejectedTasks.Load() }
