// Package cache exposes Spigot's bounded TTL cache and memoizing wrapper.
package cache

import (
	"time"

	internalcache "github.com/SmitUplenchwar2687/Spigot/internal/cache"
)

// ErrInvalidConfig is returned for a non-positive size or TTL.
var ErrInvalidConfig = internalcache.ErrInvalidConfig

// TTLCache is a size-bounded cache whose entries expire after a fixed TTL.
type TTLCache[V any] = internalcache.TTLCache[V]

// Stats are cumulative cache counters.
type Stats = internalcache.Stats

// Option configures a cache.
type Option = internalcache.Option

// Observer receives cache events.
type Observer = internalcache.Observer

// Func is a cacheable call.
type Func[V any] = internalcache.Func[V]

// KeyFunc derives a cache key from call arguments.
type KeyFunc = internalcache.KeyFunc

// KeyError reports arguments that cannot be turned into a key.
type KeyError = internalcache.KeyError

// New creates a cache holding at most maxSize entries for ttl each.
func New[V any](maxSize int, ttl time.Duration, opts ...Option) (*TTLCache[V], error) {
	return internalcache.New[V](maxSize, ttl, opts...)
}

// Wrap memoizes fn in c. A nil keyFn uses Key.
func Wrap[V any](c *TTLCache[V], fn Func[V], keyFn KeyFunc) Func[V] {
	return internalcache.Wrap(c, fn, keyFn)
}

// Key is the default argument hash.
func Key(args []any, kwargs map[string]any) (string, error) {
	return internalcache.Key(args, kwargs)
}

var (
	WithClock    = internalcache.WithClock
	WithObserver = internalcache.WithObserver
	WithName     = internalcache.WithName
)
