package pool

import (
	"errors"
	"strings"
	"testing"
)

func TestTaskError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("root cause")
	te := &TaskError{Cause: cause}

	if !errors.Is(te, cause) {
		t.Error("expected errors.Is to reach the cause through TaskError")
	}
	if !strings.Contains(te.Error(), "root cause") {
		t.Errorf("expected message to mention the cause, got %q", te.Error())
	}
}

func TestPanicError_MessageIncludesValueAndStack(t *testing.T) {
	pe := &PanicError{Value: "oops", Stack: []byte("goroutine 1 [running]:")}

	msg := pe.Error()
	if !strings.Contains(msg, "oops") {
		t.Errorf("expected panic value in message, got %q", msg)
	}
	if !strings.Contains(msg, "goroutine 1") {
		t.Errorf("expected stack in message, got %q", msg)
	}
}

func TestInvalidConfig_WrapsSentinel(t *testing.T) {
	err := invalidConfig("core size %d must be >= 0", -3)

	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("expected errors.Is(err, ErrInvalidConfig)")
	}
	if !strings.Contains(err.Error(), "-3") {
		t.Errorf("expected formatted detail in message, got %q", err.Error())
	}
}

func TestSentinels_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrPoolSaturated,
		ErrPoolShutdown,
		ErrCancelled,
		ErrGetTimeout,
		ErrInvalidConfig,
		ErrQueueFull,
		ErrQueueClosed,
		ErrShutdownTimeout,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %d and %d must be distinct: %v, %v", i, j, a, b)
			}
		}
	}
}
