// Package algorithms holds small self-contained strategies shared by the
// executor packages.
package algorithms

import (
	"math/rand"
	"time"
)

// Backoff computes the delay before a retry attempt. Attempt numbering
// starts at 1 (the delay after the first failure).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// exponential doubles the delay each attempt, capped at max.
type exponential struct {
	initial time.Duration
	max     time.Duration
}

// NewExponential returns a backoff of initial, 2*initial, 4*initial, ...
// capped at max.
func NewExponential(initial, max time.Duration) Backoff {
	if initial <= 0 {
		initial = time.Millisecond
	}
	if max < initial {
		max = initial
	}
	return &exponential{initial: initial, max: max}
}

func (e *exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= e.max {
			return e.max
		}
	}
	if d > e.max {
		return e.max
	}
	return d
}

// jittered is exponential backoff with a random perturbation, spreading out
// retry storms from tasks that failed together.
type jittered struct {
	base   Backoff
	factor float64
}

// NewJittered wraps exponential backoff with +/- factor jitter. A factor of
// 0.1 perturbs each delay by up to 10% in either direction.
func NewJittered(initial, max time.Duration, factor float64) Backoff {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	return &jittered{base: NewExponential(initial, max), factor: factor}
}

func (j *jittered) Delay(attempt int) time.Duration {
	d := j.base.Delay(attempt)
	if j.factor == 0 {
		return d
	}
	spread := float64(d) * j.factor
	offset := (rand.Float64()*2 - 1) * spread
	out := time.Duration(float64(d) + offset)
	if out < 0 {
		return 0
	}
	return out
}

// Fixed returns a constant delay for every attempt.
func Fixed(d time.Duration) Backoff { return fixed(d) }

type fixed time.Duration

func (f fixed) Delay(int) time.Duration { return time.Duration(f) }
