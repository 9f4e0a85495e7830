package batch

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultSlots bounds how many jobs may be in flight at once.
	DefaultSlots = 64

	// DefaultWorkerFraction is the share of hardware threads given to workers.
	DefaultWorkerFraction = 0.75

	// DefaultCriticalWindow is the longest a critical section may stay open.
	DefaultCriticalWindow = 2 * time.Millisecond

	// DefaultIdleSleep is the sleep a worker falls back to once spinning and
	// yielding found no work.
	DefaultIdleSleep = 200 * time.Microsecond
)

// Option configures a Runner.
type Option func(*config)

type config struct {
	workers        int
	slots          int
	spins          int
	yields         int
	idleSleep      time.Duration
	criticalWindow time.Duration
	logger         zerolog.Logger
}

func defaultConfig() config {
	return config{
		workers:        workersFor(DefaultWorkerFraction),
		slots:          DefaultSlots,
		spins:          64,
		yields:         16,
		idleSleep:      DefaultIdleSleep,
		criticalWindow: DefaultCriticalWindow,
		logger:         zerolog.Nop(),
	}
}

func workersFor(fraction float64) int {
	return max(1, int(float64(runtime.NumCPU())*fraction))
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithWorkerFraction sizes the pool as a fraction of runtime.NumCPU, with a
// minimum of one worker.
func WithWorkerFraction(fraction float64) Option {
	return func(c *config) {
		if fraction > 0 {
			c.workers = workersFor(fraction)
		}
	}
}

// WithSlots sets the maximum number of concurrently submitted jobs.
func WithSlots(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.slots = n
		}
	}
}

// WithIdleSleep sets the backoff sleep of idle workers and waiters.
func WithIdleSleep(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.idleSleep = d
		}
	}
}

// WithCriticalWindow bounds how long a critical section can keep workers
// spinning before it expires on its own.
func WithCriticalWindow(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.criticalWindow = d
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
