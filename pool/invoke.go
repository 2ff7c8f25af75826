package pool

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// InvokeAll submits every task and blocks until all of them reach a terminal
// state, returning the futures in submission order. Individual failures do
// not abort the batch; inspect each future for its outcome. An admission
// error (saturation under Abort, or shutdown) aborts the wait and is
// returned, with the already-submitted futures still running.
func InvokeAll[R any](ctx context.Context, p *Pool[R], tasks []Callable[R]) ([]*Future[R], error) {
	futures := make([]*Future[R], len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		f, err := p.Submit(task)
		if err != nil {
			return futures, err
		}
		futures[i] = f

		g.Go(func() error {
			select {
			case <-f.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return futures, err
	}
	return futures, nil
}

// InvokeAllTimeout is InvokeAll bounded by a timeout. On expiry every future
// still pending or running is cancelled with interruption, then the futures
// are returned along with the context error.
func InvokeAllTimeout[R any](p *Pool[R], tasks []Callable[R], timeout time.Duration) ([]*Future[R], error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	futures, err := InvokeAll(ctx, p, tasks)
	if errors.Is(err, context.DeadlineExceeded) {
		for _, f := range futures {
			if f != nil && !f.IsDone() {
				f.Cancel(true)
			}
		}
	}
	return futures, err
}
