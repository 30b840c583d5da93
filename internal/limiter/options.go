package limiter

import (
	"log/slog"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
)

const (
	// DefaultWindowPoll is how often window limiters retry inside Wait.
	DefaultWindowPoll = 100 * time.Millisecond
	// DefaultBucketPoll is how often the token bucket retries inside Wait.
	DefaultBucketPoll = 10 * time.Millisecond
)

// Observer receives admission events. Calls happen outside the limiter lock.
type Observer interface {
	OnAdmit(limiter string)
	OnReject(limiter string)
	OnWait(limiter string, waited time.Duration)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnAdmit(string)               {}
func (NopObserver) OnReject(string)              {}
func (NopObserver) OnWait(string, time.Duration) {}

type options struct {
	name     string
	clock    clock.Clock
	poll     time.Duration
	observer Observer
	logger   *slog.Logger
}

func buildOptions(defaultPoll time.Duration, opts []Option) options {
	o := options{
		name:     "default",
		clock:    clock.NewRealClock(),
		poll:     defaultPoll,
		observer: NopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a limiter.
type Option func(*options)

// WithClock sets the time source used for all window and refill arithmetic.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithPollInterval overrides the retry interval used by Wait.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithObserver registers an admission observer, e.g. a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithName labels the limiter in observer events and logs.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger for backend failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o *options) report(allowed bool) {
	if allowed {
		o.observer.OnAdmit(o.name)
	} else {
		o.observer.OnReject(o.name)
	}
}
