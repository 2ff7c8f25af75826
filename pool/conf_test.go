package pool

import (
	"errors"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	p, err := New[int]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	if p.conf.coreSize != p.conf.maxSize {
		t.Errorf("default core %d and max %d must match", p.conf.coreSize, p.conf.maxSize)
	}
	if p.conf.keepAlive != time.Minute {
		t.Errorf("expected default keep-alive of 1m, got %v", p.conf.keepAlive)
	}
	if p.conf.policy != Abort {
		t.Errorf("expected default Abort policy, got %v", p.conf.policy.Name())
	}
	if p.queue.Cap() >= 0 {
		t.Errorf("expected unbounded default queue, got capacity %d", p.queue.Cap())
	}
}

func TestConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"negative core size", []Option{WithCoreSize(-1)}},
		{"zero max size", []Option{WithCoreSize(0), WithMaxSize(0)}},
		{"max below core", []Option{WithCoreSize(4), WithMaxSize(2)}},
		{"negative keep-alive", []Option{WithKeepAlive(-time.Second)}},
		{"negative queue capacity", []Option{WithQueueCapacity(-1)}},
		{"lock-free without capacity", []Option{WithLockFreeQueue(0)}},
		{"priority with rendezvous", []Option{WithPriorityOrdering(), WithQueueCapacity(0)}},
		{"priority with lock-free", []Option{WithPriorityOrdering(), WithLockFreeQueue(8)}},
		{"nil rejection policy", []Option{WithRejectionPolicy(nil)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New[int](tc.opts...)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfig_ZeroCoreSizeIsValid(t *testing.T) {
	p, err := New[int](WithCoreSize(0), WithMaxSize(2), WithQueueCapacity(0))
	if err != nil {
		t.Fatalf("a pool of only surplus workers must be valid: %v", err)
	}
	p.Shutdown()
}

func TestConfig_FixedBackoffKeepsDelayConstant(t *testing.T) {
	c := defaultConfig()
	WithRetryPolicy(4, 20*time.Millisecond)(c)
	WithFixedBackoff()(c)

	b := buildBackoff(c)
	if b == nil {
		t.Fatal("expected a backoff strategy when retries are configured")
	}
	for _, attempt := range []int{1, 2, 3} {
		if d := b.Delay(attempt); d != 20*time.Millisecond {
			t.Errorf("attempt %d: expected constant 20ms delay, got %v", attempt, d)
		}
	}
}

func TestConfig_LockFreeQueueSelected(t *testing.T) {
	p, err := New[int](WithFixedSize(2), WithLockFreeQueue(16))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	if _, ok := p.queue.(*ringQueue[int]); !ok {
		t.Errorf("expected ring queue backend, got %T", p.queue)
	}
}

func TestConfig_BoundedPriorityUsesHeap(t *testing.T) {
	p, err := New[int](WithFixedSize(2), WithQueueCapacity(8), WithPriorityOrdering())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	if _, ok := p.queue.(*heapQueue[int]); !ok {
		t.Errorf("expected heap queue backend for bounded priority, got %T", p.queue)
	}
	if p.queue.Cap() != 8 {
		t.Errorf("expected capacity 8, got %d", p.queue.Cap())
	}
}
