package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Algorithm identifies a rate limiting algorithm.
type Algorithm string

const (
	AlgorithmTokenBucket   Algorithm = "token_bucket"
	AlgorithmSlidingWindow Algorithm = "sliding_window"
	AlgorithmFixedWindow   Algorithm = "fixed_window"
)

var (
	// ErrInvalidConfig is returned by constructors for non-positive limits,
	// windows, capacities, or rates.
	ErrInvalidConfig = errors.New("limiter: invalid configuration")

	// ErrExceedsCapacity is returned by TokenBucket.WaitForTokens when the
	// request can never be satisfied.
	ErrExceedsCapacity = errors.New("limiter: requested tokens exceed bucket capacity")
)

// Admitter is a single admission-control primitive shared by every caller
// that holds it. Implementations are safe for concurrent use.
type Admitter interface {
	// TryAcquire reports whether one more call is admitted right now.
	// A rejected attempt leaves no trace in the limiter state.
	TryAcquire() bool

	// Admit is TryAcquire with the full decision, computed in the same
	// critical section as the admission itself.
	Admit() Decision

	// Wait blocks until the call is admitted or ctx is done.
	Wait(ctx context.Context) error

	// TimeUntilAvailable estimates how long until TryAcquire could succeed.
	// The estimate is advisory: other callers may take the slot first.
	TimeUntilAvailable() time.Duration
}

// Limiter applies per-key admission, e.g. one budget per API key or client.
type Limiter interface {
	// Allow checks if a request identified by key is allowed.
	Allow(ctx context.Context, key string) Decision
}

// Decision captures the result of one admission check.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`          // Calls still admissible after this check
	Limit     int       `json:"limit"`              // Max calls per window / bucket capacity
	ResetAt   time.Time `json:"reset_at"`           // When the window/bucket fully resets
	RetryAt   time.Time `json:"retry_at,omitempty"` // Earliest time to retry (if denied)
}

// Config holds the parameters for creating a limiter.
type Config struct {
	Algorithm Algorithm     `json:"algorithm" yaml:"algorithm"`
	Rate      int           `json:"rate" yaml:"rate"`     // Requests allowed per window
	Window    time.Duration `json:"window" yaml:"window"` // Window duration
	Burst     int           `json:"burst" yaml:"burst"`   // Max burst (token bucket only)
}

// Validate checks that the config describes a usable limiter.
func (c Config) Validate() error {
	if c.Rate <= 0 {
		return fmt.Errorf("%w: rate must be positive, got %d", ErrInvalidConfig, c.Rate)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	if c.Burst < 0 {
		return fmt.Errorf("%w: burst must not be negative, got %d", ErrInvalidConfig, c.Burst)
	}
	switch c.Algorithm {
	case AlgorithmTokenBucket, AlgorithmSlidingWindow, AlgorithmFixedWindow:
	default:
		return fmt.Errorf("%w: unknown algorithm %q, must be one of: token_bucket, sliding_window, fixed_window", ErrInvalidConfig, c.Algorithm)
	}
	return nil
}

// New builds one Admitter from cfg.
//
// For the token bucket, Rate per Window sets the refill rate and Burst the
// capacity (0 means capacity = Rate).
func New(cfg Config, opts ...Option) (Admitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		a   Admitter
		err error
	)
	switch cfg.Algorithm {
	case AlgorithmTokenBucket:
		burst := cfg.Burst
		if burst == 0 {
			burst = cfg.Rate
		}
		a, err = NewTokenBucket(float64(burst), float64(cfg.Rate)/cfg.Window.Seconds(), opts...)
	case AlgorithmSlidingWindow:
		a, err = NewSlidingWindow(cfg.Rate, cfg.Window, opts...)
	default:
		a, err = NewFixedWindow(cfg.Rate, cfg.Window, opts...)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
