// Package middleware exposes Spigot's request/response hook chain.
package middleware

import (
	"context"
	"log/slog"

	internalmw "github.com/SmitUplenchwar2687/Spigot/internal/middleware"
	"github.com/SmitUplenchwar2687/Spigot/pkg/clock"
	"github.com/SmitUplenchwar2687/Spigot/pkg/limiter"
)

type (
	Payload        = internalmw.Payload
	Middleware     = internalmw.Middleware
	CallFunc       = internalmw.CallFunc
	Manager        = internalmw.Manager
	Timings        = internalmw.Timings
	RateLimitError = internalmw.RateLimitError
)

// ErrRateLimited is wrapped by every RateLimitError.
var ErrRateLimited = internalmw.ErrRateLimited

// NewManager returns a manager running mws in order.
func NewManager(mws ...Middleware) *Manager {
	return internalmw.NewManager(mws...)
}

// Logging logs each request, response and error.
func Logging(logger *slog.Logger) Middleware {
	return internalmw.Logging(logger)
}

// Timing measures each call's duration on c.
func Timing(c clock.Clock) (*Timings, Middleware) {
	return internalmw.Timing(c)
}

// RateLimit rejects requests a does not admit.
func RateLimit(a limiter.Admitter, logger *slog.Logger) Middleware {
	return internalmw.RateLimit(a, logger)
}

// NewCall starts a per-call scope for Stash.
func NewCall(ctx context.Context) context.Context {
	return internalmw.NewCall(ctx)
}
