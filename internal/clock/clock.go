package clock

import (
	"context"
	"time"
)

// Clock abstracts time so the cache and the limiters work with both real and
// virtual time. Nothing in Spigot calls time.Now() directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// After returns a channel that receives the current time after duration d.
	After(d time.Duration) <-chan time.Time
}

// RealClock delegates to the standard time package.
type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// stopper is implemented by clocks that can forget an After channel nobody
// will read.
type stopper interface {
	stop(ch <-chan time.Time)
}

// Sleep blocks for d as measured by c, or until ctx is done.
// It returns ctx.Err() if the context ends first.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := c.After(d)
	select {
	case <-ctx.Done():
		if s, ok := c.(stopper); ok {
			s.stop(ch)
		}
		return ctx.Err()
	case <-ch:
		return nil
	}
}
