package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFuture_Get_ReturnsValue(t *testing.T) {
	p, err := New[int](WithFixedSize(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	f, err := p.Submit(func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := f.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	if f.State() != StateCompleted {
		t.Errorf("expected completed state, got %v", f.State())
	}
}

func TestFuture_Get_ReturnsWrappedFailure(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	taskErr := errors.New("boom")
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		return 0, taskErr
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.Get()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, taskErr) {
		t.Errorf("expected error chain to contain %v, got %v", taskErr, err)
	}

	var te *TaskError
	if !errors.As(err, &te) {
		t.Errorf("expected *TaskError, got %T", err)
	}
	if f.State() != StateFailed {
		t.Errorf("expected failed state, got %v", f.State())
	}
}

func TestFuture_Get_IdenticalOutcomeForAllCallers(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	f, err := p.Submit(func(ctx context.Context) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const readers = 8
	results := make([]int, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.Get()
			if err != nil {
				t.Errorf("reader %d: unexpected error: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		if v != 7 {
			t.Errorf("reader %d: expected 7, got %d", i, v)
		}
	}
}

func TestFuture_GetWithTimeout_TimesOut(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	release := make(chan struct{})
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.GetWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, ErrGetTimeout) {
		t.Fatalf("expected ErrGetTimeout, got %v", err)
	}

	// Timing out must not disturb the task; it still completes.
	close(release)
	v, err := f.Get()
	if err != nil {
		t.Fatalf("unexpected error after timeout: %v", err)
	}
	if v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
}

func TestFuture_TryGet_NonBlocking(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	release := make(chan struct{})
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		<-release
		return 5, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, ok := f.TryGet(); ok {
		t.Error("expected TryGet to report not done while task is running")
	}

	close(release)
	if _, err := f.Get(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err, ok := f.TryGet()
	if !ok {
		t.Fatal("expected TryGet to report done after completion")
	}
	if err != nil || v != 5 {
		t.Errorf("expected (5, nil), got (%d, %v)", v, err)
	}
}

func TestFuture_Cancel_PendingNeverRuns(t *testing.T) {
	p, err := New[int](WithFixedSize(1), WithQueueCapacity(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.ShutdownNow()

	block := make(chan struct{})
	if _, err := p.Submit(func(ctx context.Context) (int, error) {
		<-block
		return 0, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ran := false
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		ran = true
		return 0, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.Cancel(false) {
		t.Fatal("expected Cancel to succeed on a pending task")
	}
	if f.State() != StateCancelled {
		t.Errorf("expected cancelled state, got %v", f.State())
	}
	if !f.IsCancelled() {
		t.Error("expected IsCancelled to report true")
	}

	_, err = f.Get()
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}

	close(block)
	time.Sleep(50 * time.Millisecond)
	if ran {
		t.Error("cancelled pending task must never execute")
	}
}

func TestFuture_Cancel_RunningWithoutInterruptHasNoEffect(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 9, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-started
	if f.Cancel(false) {
		t.Error("Cancel(false) on a running task should have no effect")
	}

	close(release)
	v, err := f.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 9 {
		t.Errorf("expected 9, got %d", v)
	}
}

func TestFuture_Cancel_InterruptsCooperativeTask(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	started := make(chan struct{})
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-started
	if !f.Cancel(true) {
		t.Fatal("expected Cancel(true) on a running task to deliver the interrupt")
	}

	_, err = f.Get()
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if f.State() != StateCancelled {
		t.Errorf("expected cancelled state, got %v", f.State())
	}
}

func TestFuture_Cancel_TerminalIsNoOp(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	f, err := p.Submit(func(ctx context.Context) (int, error) {
		return 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Get(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Cancel(true) {
		t.Error("Cancel on a completed task must be a no-op")
	}
	if f.State() != StateCompleted {
		t.Errorf("cancel must not overwrite the completed state, got %v", f.State())
	}
}

func TestFuture_IgnoredInterruptCompletesNaturally(t *testing.T) {
	p, err := New[int](WithFixedSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	started := make(chan struct{})
	f, err := p.Submit(func(ctx context.Context) (int, error) {
		close(started)
		// Ignores ctx entirely.
		time.Sleep(30 * time.Millisecond)
		return 11, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-started
	f.Cancel(true)

	v, err := f.Get()
	if err != nil {
		t.Fatalf("expected natural completion, got %v", err)
	}
	if v != 11 {
		t.Errorf("expected 11, got %d", v)
	}
	if f.State() != StateCompleted {
		t.Errorf("expected completed state, got %v", f.State())
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StatePending:   "pending",
		StateRunning:   "running",
		StateCompleted: "completed",
		StateFailed:    "failed",
		StateCancelled: "cancelled",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
