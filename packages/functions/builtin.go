package functions

import (
	"math/rand"
	"time"
)

// Clock provides time functionality for testing
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator provides random number generation for testing
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator uses the standard library's rand package
type DefaultRandomGenerator struct{}

func (d *DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// builtins holds the collaborators of the built-in function bodies
type builtins struct {
	clock Clock
	rng   RandomGenerator
}

// Option configures the built-in catalog
type Option func(*builtins)

// WithClock replaces the clock used by NOW and TODAY
func WithClock(c Clock) Option {
	return func(b *builtins) {
		b.clock = c
	}
}

// WithRandom replaces the generator used by RAND
func WithRandom(r RandomGenerator) Option {
	return func(b *builtins) {
		b.rng = r
	}
}

// NewDefaultRegistry creates a catalog holding every built-in function
func NewDefaultRegistry(opts ...Option) *Registry {
	b := &builtins{clock: &WallClock{}, rng: &DefaultRandomGenerator{}}
	for _, opt := range opts {
		opt(b)
	}
	r := NewRegistry()
	b.registerMath(r)
	b.registerStatistics(r)
	b.registerLogical(r)
	b.registerText(r)
	b.registerInfo(r)
	b.registerAsync(r)
	b.registerOperators(r)
	return r
}

var defaultRegistry = NewDefaultRegistry()

// Default returns the shared built-in catalog
func Default() *Registry {
	return defaultRegistry
}

// argOr returns args[i], or fallback when the argument was not supplied
func argOr(args []any, i int, fallback any) any {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return fallback
}

// numberArg coerces args[i] to a number
func numberArg(args []any, i int, fallback float64) (float64, error) {
	return ToNumber(argOr(args, i, fallback))
}
