package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
)

// ErrRateLimited is returned by the RateLimit request hook.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError carries the decision behind a rejection.
type RateLimitError struct {
	Endpoint string
	Limit    int
	RetryAt  time.Time
}

func (e *RateLimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("%s: %v (limit %d)", e.Endpoint, ErrRateLimited, e.Limit)
	}
	return fmt.Sprintf("%s: %v (limit %d, retry at %s)", e.Endpoint, ErrRateLimited, e.Limit, e.RetryAt.Format(time.RFC3339Nano))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Logging logs every request, response and error at info or error level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return Middleware{
		Name: "logging",
		Request: func(ctx context.Context, endpoint string, data Payload) (Payload, error) {
			logger.InfoContext(ctx, "request", "endpoint", endpoint, "fields", len(data))
			return data, nil
		},
		Response: func(ctx context.Context, endpoint string, resp any) (any, error) {
			logger.InfoContext(ctx, "response", "endpoint", endpoint)
			return resp, nil
		},
		Error: func(ctx context.Context, endpoint string, err error) {
			logger.ErrorContext(ctx, "request failed", "endpoint", endpoint, "error", err)
		},
	}
}

// Timings keeps the last observed duration per endpoint.
type Timings struct {
	mu   sync.RWMutex
	last map[string]time.Duration
}

// Get returns the last duration recorded for endpoint.
func (t *Timings) Get(endpoint string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.last[endpoint]
	return d, ok
}

// All returns a copy of every recorded duration.
func (t *Timings) All() map[string]time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]time.Duration, len(t.last))
	for k, v := range t.last {
		out[k] = v
	}
	return out
}

func (t *Timings) set(endpoint string, d time.Duration) {
	t.mu.Lock()
	t.last[endpoint] = d
	t.mu.Unlock()
}

type timingKey struct{ t *Timings }

// Timing measures the time between the request and response hooks of each
// call. The start time lives in the call scope, so overlapping calls do not
// clobber each other. Calls made without a scope are not timed.
func Timing(c clock.Clock) (*Timings, Middleware) {
	if c == nil {
		c = clock.NewRealClock()
	}
	t := &Timings{last: make(map[string]time.Duration)}
	key := timingKey{t}
	return t, Middleware{
		Name: "timing",
		Request: func(ctx context.Context, _ string, data Payload) (Payload, error) {
			Stash(ctx, key, c.Now())
			return data, nil
		},
		Response: func(ctx context.Context, endpoint string, resp any) (any, error) {
			if v, ok := Stashed(ctx, key); ok {
				t.set(endpoint, c.Since(v.(time.Time)))
			}
			return resp, nil
		},
	}
}

// RateLimit rejects requests the admitter does not admit. Rejections are
// logged at most once every 10 seconds.
func RateLimit(a limiter.Admitter, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	sometimes := &rate.Sometimes{First: 1, Interval: 10 * time.Second}
	return Middleware{
		Name: "rate_limit",
		Request: func(ctx context.Context, endpoint string, data Payload) (Payload, error) {
			d := a.Admit()
			if d.Allowed {
				return data, nil
			}
			sometimes.Do(func() {
				logger.WarnContext(ctx, "request rate limited", "endpoint", endpoint, "limit", d.Limit, "retry_at", d.RetryAt)
			})
			return nil, &RateLimitError{Endpoint: endpoint, Limit: d.Limit, RetryAt: d.RetryAt}
		},
	}
}
