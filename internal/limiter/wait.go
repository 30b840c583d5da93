package limiter

import (
	"context"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
)

// pollUntil retries try every o.poll until it admits, fails, or ctx ends.
// No limiter lock is held between attempts.
func pollUntil(ctx context.Context, o *options, try func(context.Context) (bool, error)) error {
	start := o.clock.Now()
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			o.observer.OnWait(o.name, o.clock.Since(start))
			return nil
		}
		if err := clock.Sleep(ctx, o.clock, o.poll); err != nil {
			return err
		}
	}
}
