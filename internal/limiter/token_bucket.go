package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The balance refills continuously at refillRate tokens per second up to
// capacity. Refill is applied lazily on each access; there is no background
// timer. Tokens are fractional and partial refills carry over between calls.
type TokenBucket struct {
	opts     options
	capacity float64
	rate     float64 // tokens per second

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
//   - capacity: max tokens that can accumulate
//   - refillRate: tokens added per second
func NewTokenBucket(capacity, refillRate float64, opts ...Option) (*TokenBucket, error) {
	if !(capacity > 0) || math.IsInf(capacity, 0) {
		return nil, fmt.Errorf("%w: capacity must be positive and finite, got %v", ErrInvalidConfig, capacity)
	}
	if !(refillRate > 0) || math.IsInf(refillRate, 0) {
		return nil, fmt.Errorf("%w: refill rate must be positive and finite, got %v", ErrInvalidConfig, refillRate)
	}
	o := buildOptions(DefaultBucketPoll, opts)
	return &TokenBucket{
		opts:       o,
		capacity:   capacity,
		rate:       refillRate,
		tokens:     capacity,
		lastRefill: o.clock.Now(),
	}, nil
}

// refillLocked adds elapsed × rate, capped at capacity. Must hold tb.mu.
func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.rate)
	}
	tb.lastRefill = now
}

func (tb *TokenBucket) seconds(s float64) time.Duration {
	return time.Duration(math.Ceil(s * float64(time.Second)))
}

func (tb *TokenBucket) consumeLocked(now time.Time, n float64) Decision {
	tb.refillLocked(now)

	d := Decision{
		Limit:   int(tb.capacity),
		ResetAt: now,
	}
	if n <= 0 {
		d.Allowed = true
	} else if tb.tokens >= n {
		tb.tokens -= n
		d.Allowed = true
	} else if n <= tb.capacity {
		d.RetryAt = now.Add(tb.seconds((n - tb.tokens) / tb.rate))
	}
	// n > capacity leaves RetryAt zero: no amount of waiting helps.

	d.Remaining = int(math.Floor(tb.tokens))
	if deficit := tb.capacity - tb.tokens; deficit > 0 {
		d.ResetAt = now.Add(tb.seconds(deficit / tb.rate))
	}
	return d
}

// Consume takes n tokens if the balance covers them and reports whether it
// did. On false the balance is left unchanged. If n exceeds the capacity,
// Consume always returns false. n <= 0 is always admitted and takes nothing.
func (tb *TokenBucket) Consume(n float64) bool {
	tb.mu.Lock()
	d := tb.consumeLocked(tb.opts.clock.Now(), n)
	tb.mu.Unlock()

	tb.opts.report(d.Allowed)
	return d.Allowed
}

// WaitForTokens blocks until n tokens were consumed or ctx is done,
// polling every 10ms by default. It fails fast with ErrExceedsCapacity when
// n can never fit in the bucket.
func (tb *TokenBucket) WaitForTokens(ctx context.Context, n float64) error {
	if n > tb.capacity {
		return fmt.Errorf("%w: want %v, capacity %v", ErrExceedsCapacity, n, tb.capacity)
	}
	return pollUntil(ctx, &tb.opts, func(context.Context) (bool, error) {
		return tb.Consume(n), nil
	})
}

func (tb *TokenBucket) Admit() Decision {
	tb.mu.Lock()
	d := tb.consumeLocked(tb.opts.clock.Now(), 1)
	tb.mu.Unlock()

	tb.opts.report(d.Allowed)
	return d
}

func (tb *TokenBucket) TryAcquire() bool {
	return tb.Consume(1)
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.WaitForTokens(ctx, 1)
}

// TimeUntilAvailable returns how long until one token is in the bucket.
func (tb *TokenBucket) TimeUntilAvailable() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(tb.opts.clock.Now())
	if tb.tokens >= 1 {
		return 0
	}
	return tb.seconds((1 - tb.tokens) / tb.rate)
}

// Tokens returns the current balance after applying any pending refill.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(tb.opts.clock.Now())
	return tb.tokens
}

// Capacity returns the maximum balance.
func (tb *TokenBucket) Capacity() float64 { return tb.capacity }

// RefillRate returns the refill rate in tokens per second.
func (tb *TokenBucket) RefillRate() float64 { return tb.rate }
