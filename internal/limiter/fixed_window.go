package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FixedWindow implements the fixed window counter rate limiting algorithm.
//
// Time is divided into window-aligned slots. Each admitted call increments
// the slot counter; calls beyond the limit are denied until the next slot.
// Cheap, but can admit up to 2x the limit across a slot boundary.
type FixedWindow struct {
	opts   options
	limit  int
	window time.Duration

	mu       sync.Mutex
	count    int
	windowID int64 // which slot count belongs to
}

// NewFixedWindow creates a fixed window limiter.
//   - limit: max calls admitted per window
//   - window: duration of each slot
func NewFixedWindow(limit int, window time.Duration, opts ...Option) (*FixedWindow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, window)
	}
	return &FixedWindow{
		opts:     buildOptions(DefaultWindowPoll, opts),
		limit:    limit,
		window:   window,
		windowID: -1,
	}, nil
}

func (fw *FixedWindow) slot(t time.Time) int64 {
	return t.UnixNano() / int64(fw.window)
}

func (fw *FixedWindow) slotEnd(id int64) time.Time {
	return time.Unix(0, (id+1)*int64(fw.window))
}

// rollLocked resets the counter when now is in a new slot. Must hold fw.mu.
func (fw *FixedWindow) rollLocked(now time.Time) int64 {
	id := fw.slot(now)
	if id != fw.windowID {
		fw.windowID = id
		fw.count = 0
	}
	return id
}

func (fw *FixedWindow) Admit() Decision {
	fw.mu.Lock()
	now := fw.opts.clock.Now()
	resetAt := fw.slotEnd(fw.rollLocked(now))

	d := Decision{Limit: fw.limit, ResetAt: resetAt}
	if fw.count < fw.limit {
		fw.count++
		d.Allowed = true
		d.Remaining = fw.limit - fw.count
	} else {
		d.RetryAt = resetAt
	}
	fw.mu.Unlock()

	fw.opts.report(d.Allowed)
	return d
}

func (fw *FixedWindow) TryAcquire() bool {
	return fw.Admit().Allowed
}

func (fw *FixedWindow) Wait(ctx context.Context) error {
	return pollUntil(ctx, &fw.opts, func(context.Context) (bool, error) {
		return fw.TryAcquire(), nil
	})
}

func (fw *FixedWindow) TimeUntilAvailable() time.Duration {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.opts.clock.Now()
	id := fw.rollLocked(now)
	if fw.count < fw.limit {
		return 0
	}
	return fw.slotEnd(id).Sub(now)
}
