package pool

import (
	"context"
	"errors"
	"runtime"
	"time"
)

// workerLoop is the body of a worker goroutine. first is the task that caused
// the spawn (nil for prestarted workers); it runs before the take loop so a
// submission that triggered a spawn never waits behind the queue.
//
// The live-worker slot was reserved by the spawner; the deferred exit handler
// releases it exactly once and replaces the worker if it died abnormally.
func (p *Pool[R]) workerLoop(first *taskEntry[R]) {
	released := false
	normal := false
	defer func() {
		p.finishWorker(normal, released, recover())
	}()

	if first != nil {
		p.runEntry(first, true)
	}

	for {
		timeout := p.idleTimeout()

		e, ok, err := p.queue.Take(timeout)
		if err != nil {
			// Queue closed and drained: shutdown path.
			normal = true
			return
		}
		if !ok {
			// Idle timeout. Exit only if the pool can spare this worker;
			// the CAS reservation keeps concurrent exits from undershooting
			// the core size.
			if p.canReleaseIdle() {
				released = true
				normal = true
				return
			}
			continue
		}

		p.runEntry(e, true)
	}
}

// idleTimeout decides how long the next Take may block. Workers within the
// core size wait forever unless core timeout is enabled; surplus workers wait
// at most the keep-alive period (zero keep-alive means wait forever, matching
// "surplus workers never reclaimed").
func (p *Pool[R]) idleTimeout() time.Duration {
	surplus := int(p.liveWorkers.Load()) > p.conf.coreSize
	if !surplus && !p.conf.allowCoreTimeout {
		return -1
	}
	if p.conf.keepAlive == 0 {
		return -1
	}
	return p.conf.keepAlive
}

// canReleaseIdle atomically releases this worker's live slot if the pool can
// shrink: above core size always, at or below it only with core timeout
// enabled. Returns false when the worker must stay.
func (p *Pool[R]) canReleaseIdle() bool {
	for {
		live := p.liveWorkers.Load()
		floor := int32(p.conf.coreSize)
		if p.conf.allowCoreTimeout {
			floor = 0
		}
		if p.State() != PoolRunning {
			// Shrink freely during shutdown.
			floor = 0
		}
		if live <= floor {
			return false
		}
		if p.liveWorkers.CompareAndSwap(live, live-1) {
			return true
		}
	}
}

// finishWorker is the single exit point for a worker goroutine. released
// means canReleaseIdle already gave up the live slot. An abnormal exit (a
// panic that escaped runEntry's recovery, which should not happen) is logged
// and the worker replaced while the pool is still running.
func (p *Pool[R]) finishWorker(normal, released bool, panicked any) {
	if !released {
		p.liveWorkers.Add(-1)
	}

	if !normal && panicked != nil {
		stack := make([]byte, 4096)
		stack = stack[:runtime.Stack(stack, false)]
		p.conf.logger.Error("worker died",
			"panic", panicked, "stack", string(stack))

		if p.State() == PoolRunning {
			p.spawnWorkerBelow(p.conf.coreSize, nil)
		}
	}

	p.maybeTerminate()
}

// runEntry executes a dequeued (or bypass) entry end to end: claim the
// future, run the body through the retry loop, and publish exactly one
// terminal outcome. asWorker is false on the CallerRuns path, where the
// submitting goroutine executes the task and must not count as an active
// worker.
func (p *Pool[R]) runEntry(e *taskEntry[R], asWorker bool) {
	f := e.future

	if !f.markRunning() {
		// Cancelled while queued; nothing to run.
		p.maybeTerminate()
		return
	}

	if asWorker {
		p.activeWorkers.Add(1)
		defer p.activeWorkers.Add(-1)
	}

	if p.conf.onTaskStart != nil {
		p.conf.onTaskStart()
	}

	if p.conf.rateLimiter != nil {
		if err := p.conf.rateLimiter.Wait(f.ctx); err != nil {
			p.finishEntry(e, err)
			return
		}
	}

	v, err := p.invoke(e)
	if err != nil {
		p.finishEntry(e, err)
		return
	}

	f.complete(v)
	p.completedTasks.Add(1)
	if p.conf.onTaskDone != nil {
		p.conf.onTaskDone(nil)
	}
	p.maybeTerminate()
}

// finishEntry publishes a failure outcome, distinguishing cooperative
// cancellation (the body unwound after its context was cancelled) from a
// genuine failure.
func (p *Pool[R]) finishEntry(e *taskEntry[R], err error) {
	f := e.future

	if f.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		f.finishCancelled()
	} else {
		f.fail(err)
		if e.fireAndForget && p.conf.failureObserver != nil {
			p.conf.failureObserver(err)
		}
	}

	p.completedTasks.Add(1)
	if p.conf.onTaskDone != nil {
		p.conf.onTaskDone(err)
	}
	p.maybeTerminate()
}

// invoke runs the task body with panic recovery and the configured retry
// policy. Panics never escape: they become a *PanicError failure for this
// attempt. Retries sleep per the backoff strategy and abort early when the
// task's context is cancelled.
func (p *Pool[R]) invoke(e *taskEntry[R]) (R, error) {
	var lastErr error

	for attempt := 1; attempt <= p.conf.maxAttempts; attempt++ {
		v, err := p.attempt(e)
		if err == nil {
			return v, nil
		}
		lastErr = err

		// Cancellation and panics are not retried.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		var pe *PanicError
		if errors.As(err, &pe) {
			break
		}
		if attempt == p.conf.maxAttempts {
			break
		}

		delay := p.backoff.Delay(attempt)
		p.conf.logger.Debug("retrying task",
			"task", e.seq, "attempt", attempt, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-e.future.ctx.Done():
			timer.Stop()
			var zero R
			return zero, e.future.ctx.Err()
		}
	}

	var zero R
	return zero, lastErr
}

// attempt runs the body once, converting a panic into a *PanicError carrying
// the recovered value and the goroutine stack.
func (p *Pool[R]) attempt(e *taskEntry[R]) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 8192)
			stack = stack[:runtime.Stack(stack, false)]
			err = &PanicError{Value: r, Stack: stack}
			if p.conf.onPanic != nil {
				p.conf.onPanic(r)
			}
		}
	}()
	return e.run(e.future.ctx)
}
