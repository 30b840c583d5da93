package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Func is a remote call whose results can be cached.
type Func[V any] func(ctx context.Context, args []any, kwargs map[string]any) (V, error)

// Wrap returns fn with a cache lookup in front of it: derive the key, return
// the cached value on a hit, otherwise call fn and store its result.
// Zero values, including a nil interface, are cached like any other result.
// Errors from fn or from key derivation are returned unchanged and nothing
// is stored. When keyFn is nil, Key is used.
//
// Concurrent misses on the same key share one call to fn. That call runs
// under a context detached from any single caller's cancellation, and each
// caller stops waiting when its own ctx is done. A cold load counts one miss.
func Wrap[V any](c *TTLCache[V], fn Func[V], keyFn KeyFunc) Func[V] {
	if keyFn == nil {
		keyFn = Key
	}
	var group singleflight.Group

	return func(ctx context.Context, args []any, kwargs map[string]any) (V, error) {
		var zero V

		key, err := keyFn(args, kwargs)
		if err != nil {
			return zero, err
		}
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		ch := group.DoChan(key, func() (any, error) {
			// A call that finished between our Get and DoChan has already stored it.
			if v, ok := c.peek(key); ok {
				return v, nil
			}
			v, err := fn(context.WithoutCancel(ctx), args, kwargs)
			if err != nil {
				return nil, err
			}
			c.Set(key, v)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return zero, res.Err
			}
			v, _ := res.Val.(V)
			return v, nil
		}
	}
}
