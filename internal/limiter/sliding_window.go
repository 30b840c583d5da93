package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SlidingWindow admits at most max calls in any trailing window.
//
// It keeps the timestamp of every admitted call and prunes stale ones on each
// access, so there is no boundary burst as with FixedWindow. Wait blocks the
// calling goroutine, polling every 100ms by default.
type SlidingWindow struct {
	opts options

	mu   sync.Mutex
	hist history
}

// NewSlidingWindow creates a blocking sliding window limiter.
//   - max: calls admitted per window
//   - window: length of the trailing window
func NewSlidingWindow(max int, window time.Duration, opts ...Option) (*SlidingWindow, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidConfig, max)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, window)
	}
	return &SlidingWindow{
		opts: buildOptions(DefaultWindowPoll, opts),
		hist: history{max: max, window: window},
	}, nil
}

func (sw *SlidingWindow) Admit() Decision {
	sw.mu.Lock()
	d := sw.hist.admit(sw.opts.clock.Now())
	sw.mu.Unlock()

	sw.opts.report(d.Allowed)
	return d
}

func (sw *SlidingWindow) TryAcquire() bool {
	return sw.Admit().Allowed
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	return pollUntil(ctx, &sw.opts, func(context.Context) (bool, error) {
		return sw.TryAcquire(), nil
	})
}

func (sw *SlidingWindow) TimeUntilAvailable() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.hist.untilAvailable(sw.opts.clock.Now())
}

// InWindow returns how many admitted calls are still inside the window.
func (sw *SlidingWindow) InWindow() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.hist.prune(sw.opts.clock.Now())
	return sw.hist.len()
}
