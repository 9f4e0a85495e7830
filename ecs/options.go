package ecs

import "github.com/rs/zerolog"

const (
	// RecursionLimit bounds how many shared-component hops a lookup follows.
	RecursionLimit = 10

	// DefaultInitialCapacity is the row capacity boards start with.
	DefaultInitialCapacity = 1024
)

// Option configures a World.
type Option func(*config)

type config struct {
	initialCapacity  int
	recursionLimit   int
	structuralChecks bool
	logger           zerolog.Logger
}

func defaultConfig() config {
	return config{
		initialCapacity:  DefaultInitialCapacity,
		recursionLimit:   RecursionLimit,
		structuralChecks: true,
		logger:           zerolog.Nop(),
	}
}

// WithInitialCapacity sets how many rows entity and component boards reserve
// before their first resize.
func WithInitialCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.initialCapacity = n
		}
	}
}

// WithRecursionLimit overrides RecursionLimit for shared component lookups.
func WithRecursionLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.recursionLimit = n
		}
	}
}

// WithStructuralChecks toggles the single-writer and frozen-world assertions
// on structural calls.
func WithStructuralChecks(enabled bool) Option {
	return func(c *config) {
		c.structuralChecks = enabled
	}
}

// WithLogger sets the logger used for store events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
