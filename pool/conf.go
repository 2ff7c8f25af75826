package pool

import (
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/time/rate"
)

type queueKind int

const (
	queueUnbounded queueKind = iota
	queueBounded
	queueLockFree
)

// Option is a functional option for configuring a pool.
type Option func(*config)

type config struct {
	coreSize  int
	maxSize   int
	keepAlive time.Duration

	// Whether core workers are also allowed to exit on idle timeout.
	allowCoreTimeout bool

	kind     queueKind
	capacity int

	policy RejectionPolicy

	usePriority bool

	rateLimiter *rate.Limiter
	logger      *slog.Logger

	maxAttempts  int
	retryBackoff string
	initialDelay time.Duration
	maxDelay     time.Duration
	jitterFactor float64

	onTaskStart     func()
	onTaskDone      func(err error)
	onPanic         func(v any)
	failureObserver func(err error)
}

func defaultConfig() *config {
	n := runtime.GOMAXPROCS(0)
	return &config{
		coreSize:     n,
		maxSize:      n,
		keepAlive:    time.Minute,
		kind:         queueUnbounded,
		capacity:     -1,
		policy:       Abort,
		logger:       slog.Default(),
		maxAttempts:  1,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     5 * time.Second,
		jitterFactor: 0.1,
		retryBackoff: "exponential",
	}
}

// validate applies the fail-fast rules: every invalid combination is caught
// before any worker starts.
func (c *config) validate() error {
	if c.coreSize < 0 {
		return invalidConfig("core size %d must be >= 0", c.coreSize)
	}
	if c.maxSize < 1 {
		return invalidConfig("maximum size %d must be >= 1", c.maxSize)
	}
	if c.maxSize < c.coreSize {
		return invalidConfig("maximum size %d must be >= core size %d", c.maxSize, c.coreSize)
	}
	if c.keepAlive < 0 {
		return invalidConfig("keep-alive %v must be >= 0", c.keepAlive)
	}
	if c.kind == queueBounded && c.capacity < 0 {
		return invalidConfig("queue capacity %d must be >= 0", c.capacity)
	}
	if c.kind == queueLockFree && c.capacity < 1 {
		return invalidConfig("lock-free queue requires capacity >= 1, got %d", c.capacity)
	}
	if c.usePriority && c.kind == queueBounded && c.capacity == 0 {
		return invalidConfig("priority ordering cannot be combined with a rendezvous queue")
	}
	if c.usePriority && c.kind == queueLockFree {
		return invalidConfig("priority ordering requires the default queue backend")
	}
	if c.policy == nil {
		return invalidConfig("rejection policy must not be nil")
	}
	if c.maxAttempts < 1 {
		return invalidConfig("max attempts %d must be >= 1", c.maxAttempts)
	}
	return nil
}

// WithCoreSize sets the minimum number of live workers kept during normal
// operation. Workers are spawned lazily up to this size as tasks arrive
// (see PrestartCoreWorkers for the eager variant).
func WithCoreSize(n int) Option {
	return func(c *config) { c.coreSize = n }
}

// WithMaxSize sets the maximum number of live workers. Beyond the core size,
// additional workers are spawned only when the queue is full, and they exit
// after the keep-alive idle period.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithFixedSize sets core and maximum size to the same value.
func WithFixedSize(n int) Option {
	return func(c *config) {
		c.coreSize = n
		c.maxSize = n
	}
}

// WithKeepAlive sets how long an idle non-core worker waits for work before
// exiting. Zero keeps surplus workers alive until shutdown.
func WithKeepAlive(d time.Duration) Option {
	return func(c *config) { c.keepAlive = d }
}

// WithCoreTimeout allows core workers to exit on idle timeout too, letting
// the pool shrink all the way to zero when idle.
func WithCoreTimeout() Option {
	return func(c *config) { c.allowCoreTimeout = true }
}

// WithQueueCapacity bounds the work queue. Capacity 0 configures a
// rendezvous queue: every submission must be handed directly to a worker.
// Without this option the queue is unbounded.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		c.kind = queueBounded
		c.capacity = n
	}
}

// WithLockFreeQueue selects the bounded lock-free MPMC ring backend.
// The capacity is rounded up to the next power of two.
func WithLockFreeQueue(capacity int) Option {
	return func(c *config) {
		c.kind = queueLockFree
		c.capacity = capacity
	}
}

// WithPriorityOrdering orders the queue by the priority passed to
// SubmitWithPriority (lower runs first) instead of plain FIFO. Tasks of
// equal priority keep their submission order.
func WithPriorityOrdering() Option {
	return func(c *config) { c.usePriority = true }
}

// WithRejectionPolicy selects what happens when a submission cannot be
// admitted: Abort (default), CallerRuns, Discard, or DiscardOldest.
func WithRejectionPolicy(p RejectionPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithRateLimit caps task starts at perSecond with the given burst, using a
// token bucket shared by all workers.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config) {
		if perSecond > 0 && burst > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the structured logger used for worker lifecycle and
// shutdown events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryPolicy retries failed tasks up to maxAttempts with exponential
// backoff starting at initialDelay. Retries respect the task's cancellation
// context while sleeping.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(c *config) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			c.initialDelay = initialDelay
		}
	}
}

// WithJitteredBackoff switches the retry delays to jittered exponential
// backoff with the given jitter factor (0..1).
func WithJitteredBackoff(factor float64) Option {
	return func(c *config) {
		c.retryBackoff = "jittered"
		c.jitterFactor = factor
	}
}

// WithFixedBackoff switches the retry delays to a constant wait of the
// retry policy's initial delay between every attempt.
func WithFixedBackoff() Option {
	return func(c *config) { c.retryBackoff = "fixed" }
}

// WithOnTaskStart registers a hook invoked just before a task body runs.
func WithOnTaskStart(fn func()) Option {
	return func(c *config) { c.onTaskStart = fn }
}

// WithOnTaskDone registers a hook invoked after a task reaches a terminal
// state, with the failure (nil on success).
func WithOnTaskDone(fn func(err error)) Option {
	return func(c *config) { c.onTaskDone = fn }
}

// WithOnPanic registers a hook invoked with the recovered value when a task
// body panics. The panic is still converted into the task's failure.
func WithOnPanic(fn func(v any)) Option {
	return func(c *config) { c.onPanic = fn }
}

// WithFailureObserver registers the sink for failures of fire-and-forget
// tasks submitted via Execute; such failures have no Future to surface on.
func WithFailureObserver(fn func(err error)) Option {
	return func(c *config) { c.failureObserver = fn }
}
