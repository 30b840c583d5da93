package limiter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// AsyncSlidingWindow has the same accounting as SlidingWindow, but its lock
// is a weighted semaphore: a goroutine waiting for the lock parks and can
// give up when its context ends, instead of sitting in sync.Mutex.Lock.
// Every method takes a context for that reason.
type AsyncSlidingWindow struct {
	opts options

	sem  *semaphore.Weighted
	hist history
}

// NewAsyncSlidingWindow creates a context-aware sliding window limiter.
func NewAsyncSlidingWindow(max int, window time.Duration, opts ...Option) (*AsyncSlidingWindow, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidConfig, max)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, window)
	}
	return &AsyncSlidingWindow{
		opts: buildOptions(DefaultWindowPoll, opts),
		sem:  semaphore.NewWeighted(1),
		hist: history{max: max, window: window},
	}, nil
}

// Admit checks and records one call. It fails only if ctx ends while
// waiting for the lock.
func (aw *AsyncSlidingWindow) Admit(ctx context.Context) (Decision, error) {
	if err := aw.sem.Acquire(ctx, 1); err != nil {
		return Decision{}, err
	}
	d := aw.hist.admit(aw.opts.clock.Now())
	aw.sem.Release(1)

	aw.opts.report(d.Allowed)
	return d, nil
}

func (aw *AsyncSlidingWindow) TryAcquire(ctx context.Context) (bool, error) {
	d, err := aw.Admit(ctx)
	return d.Allowed, err
}

// Wait retries TryAcquire on the poll interval until admitted or ctx ends.
// Between attempts the goroutine sleeps without holding the lock.
func (aw *AsyncSlidingWindow) Wait(ctx context.Context) error {
	return pollUntil(ctx, &aw.opts, aw.TryAcquire)
}

func (aw *AsyncSlidingWindow) TimeUntilAvailable(ctx context.Context) (time.Duration, error) {
	if err := aw.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer aw.sem.Release(1)
	return aw.hist.untilAvailable(aw.opts.clock.Now()), nil
}
