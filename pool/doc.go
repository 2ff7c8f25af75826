// Package pool implements a bounded worker pool with Future-based result
// handles, pluggable work queues, rejection policies, and a periodic
// scheduler.
//
// A pool keeps a core set of workers alive and grows up to a maximum size
// under load. Admission follows a fixed order: spawn a core worker, enqueue,
// spawn a surplus worker, then apply the rejection policy. Tasks handed
// directly to a freshly spawned worker bypass the queue, so they may run
// before earlier queued tasks; queued tasks of equal priority keep FIFO
// order among themselves.
//
// Basic usage:
//
//	p, err := pool.New[string](
//		pool.WithCoreSize(4),
//		pool.WithMaxSize(8),
//		pool.WithQueueCapacity(64),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Shutdown()
//
//	f, err := p.Submit(func(ctx context.Context) (string, error) {
//		return fetch(ctx, url)
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := f.Get()
//
// Every task receives a context cancelled when its Future is cancelled with
// interruption or when the pool is force-stopped; cooperative bodies unwind
// at their next ctx.Done() check. Futures are write-once: exactly one of
// Completed, Failed, or Cancelled is ever recorded, and Get returns the same
// outcome to every caller.
package pool
