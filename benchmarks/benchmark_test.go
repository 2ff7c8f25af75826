package benchmarks

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/poolworks/executor/pool"
)

// cpuBoundWork simulates a CPU-intensive task body
func cpuBoundWork(iterations int) pool.Callable[int] {
	return func(ctx context.Context) (int, error) {
		result := 0
		for i := 0; i < iterations; i++ {
			result += i
		}
		return result, nil
	}
}

// ioBoundWork simulates an I/O wait that respects cancellation
func ioBoundWork(delay time.Duration) pool.Callable[int] {
	return func(ctx context.Context) (int, error) {
		select {
		case <-time.After(delay):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func drainAll(b *testing.B, futures []*pool.Future[int]) {
	b.Helper()
	for _, f := range futures {
		if _, err := f.Get(); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkSubmit_UnboundedQueue(b *testing.B) {
	p, err := pool.New[int](pool.WithFixedSize(runtime.GOMAXPROCS(0)))
	if err != nil {
		b.Fatal(err)
	}
	defer p.Shutdown()

	task := cpuBoundWork(100)
	b.ResetTimer()

	futures := make([]*pool.Future[int], 0, b.N)
	for i := 0; i < b.N; i++ {
		f, err := p.Submit(task)
		if err != nil {
			b.Fatal(err)
		}
		futures = append(futures, f)
	}
	drainAll(b, futures)
}

func BenchmarkSubmit_BoundedChannelQueue(b *testing.B) {
	p, err := pool.New[int](
		pool.WithFixedSize(runtime.GOMAXPROCS(0)),
		pool.WithQueueCapacity(1024),
		pool.WithRejectionPolicy(pool.CallerRuns),
	)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Shutdown()

	task := cpuBoundWork(100)
	b.ResetTimer()

	futures := make([]*pool.Future[int], 0, b.N)
	for i := 0; i < b.N; i++ {
		f, err := p.Submit(task)
		if err != nil {
			b.Fatal(err)
		}
		futures = append(futures, f)
	}
	drainAll(b, futures)
}

func BenchmarkSubmit_LockFreeQueue(b *testing.B) {
	p, err := pool.New[int](
		pool.WithFixedSize(runtime.GOMAXPROCS(0)),
		pool.WithLockFreeQueue(1024),
		pool.WithRejectionPolicy(pool.CallerRuns),
	)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Shutdown()

	task := cpuBoundWork(100)
	b.ResetTimer()

	futures := make([]*pool.Future[int], 0, b.N)
	for i := 0; i < b.N; i++ {
		f, err := p.Submit(task)
		if err != nil {
			b.Fatal(err)
		}
		futures = append(futures, f)
	}
	drainAll(b, futures)
}

func BenchmarkSubmit_Parallel(b *testing.B) {
	p, err := pool.New[int](
		pool.WithFixedSize(runtime.GOMAXPROCS(0)),
		pool.WithLockFreeQueue(4096),
		pool.WithRejectionPolicy(pool.CallerRuns),
	)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Shutdown()

	task := cpuBoundWork(50)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			f, err := p.Submit(task)
			if err != nil {
				b.Fatal(err)
			}
			if _, err := f.Get(); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkFutureGet_AlreadyCompleted(b *testing.B) {
	p, err := pool.New[int](pool.WithFixedSize(2))
	if err != nil {
		b.Fatal(err)
	}
	defer p.Shutdown()

	f, err := p.Submit(cpuBoundWork(10))
	if err != nil {
		b.Fatal(err)
	}
	if _, err := f.Get(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := f.Get(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIOBound_SurplusScaling(b *testing.B) {
	p, err := pool.New[int](
		pool.WithCoreSize(2),
		pool.WithMaxSize(64),
		pool.WithQueueCapacity(0),
		pool.WithKeepAlive(100*time.Millisecond),
		pool.WithRejectionPolicy(pool.CallerRuns),
	)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Shutdown()

	task := ioBoundWork(time.Millisecond)
	b.ResetTimer()

	futures := make([]*pool.Future[int], 0, b.N)
	for i := 0; i < b.N; i++ {
		f, err := p.Submit(task)
		if err != nil {
			b.Fatal(err)
		}
		futures = append(futures, f)
	}
	drainAll(b, futures)
}
