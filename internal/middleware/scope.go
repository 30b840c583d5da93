package middleware

import (
	"context"
	"sync"
)

type scopeKey struct{}

// scope holds values that one call's hooks pass between its request and
// response phases.
type scope struct {
	mu     sync.Mutex
	values map[any]any
}

// NewCall returns a ctx carrying a fresh call scope. Callers that drive
// ProcessRequest and ProcessResponse by hand should pass the same returned
// ctx to both.
func NewCall(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{values: make(map[any]any)})
}

// Stash stores v under key in the call scope. It reports false when ctx
// carries no scope.
func Stash(ctx context.Context, key, v any) bool {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
	return true
}

// Stashed returns the value stored under key in the call scope.
func Stashed(ctx context.Context, key any) (any, bool) {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}
