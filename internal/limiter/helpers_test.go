package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
)

var (
	epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx   = context.Background()
)

// driveClock advances vc by step each time a goroutine is parked on it,
// until done yields the waiter's result.
func driveClock(t *testing.T, vc *clock.VirtualClock, step time.Duration, done <-chan error) error {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("waiter did not return")
			return nil
		default:
		}
		if vc.Waiters() > 0 {
			vc.Advance(step)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

type countingObserver struct {
	admitted, rejected, waits int
}

func (c *countingObserver) OnAdmit(string)               { c.admitted++ }
func (c *countingObserver) OnReject(string)              { c.rejected++ }
func (c *countingObserver) OnWait(string, time.Duration) { c.waits++ }
