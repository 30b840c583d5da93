package cache

import "github.com/SmitUplenchwar2687/Spigot/internal/clock"

// Observer receives cache events. Calls happen after the cache lock is
// released, so implementations may be slow without blocking other callers.
type Observer interface {
	OnHit(cache string)
	OnMiss(cache string)
	OnEvict(cache string)
	OnExpire(cache string)
	OnSize(cache string, entries int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnHit(string)       {}
func (NopObserver) OnMiss(string)      {}
func (NopObserver) OnEvict(string)     {}
func (NopObserver) OnExpire(string)    {}
func (NopObserver) OnSize(string, int) {}

type options struct {
	name     string
	clock    clock.Clock
	observer Observer
}

func defaultOptions() options {
	return options{
		name:     "default",
		clock:    clock.NewRealClock(),
		observer: NopObserver{},
	}
}

// Option configures a TTLCache.
type Option func(*options)

// WithClock sets the time source used for store stamps and expiry checks.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithObserver registers an event observer, e.g. a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithName labels the cache in observer events.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}
