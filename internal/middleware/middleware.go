// Package middleware runs pre- and post-call hooks around requests to an
// upstream API. Hooks are plain functions on a Middleware value; a nil hook
// is skipped.
package middleware

import (
	"context"
	"slices"
	"sync"
)

// Payload is the request body handed to request hooks.
type Payload map[string]any

// Middleware is a named set of optional hooks.
type Middleware struct {
	Name string

	// Request may rewrite the payload or abort the call with an error.
	Request func(ctx context.Context, endpoint string, data Payload) (Payload, error)

	// Response may rewrite the upstream response.
	Response func(ctx context.Context, endpoint string, resp any) (any, error)

	// Error observes a failed call.
	Error func(ctx context.Context, endpoint string, err error)
}

// CallFunc performs the upstream call.
type CallFunc func(ctx context.Context, data Payload) (any, error)

// Manager applies middleware in registration order on the way in and in
// reverse order on the way out. It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	chain []Middleware
}

// NewManager returns a manager holding mws in order.
func NewManager(mws ...Middleware) *Manager {
	m := &Manager{}
	m.Add(mws...)
	return m
}

// Add appends middleware to the chain.
func (m *Manager) Add(mws ...Middleware) {
	m.mu.Lock()
	m.chain = append(m.chain, mws...)
	m.mu.Unlock()
}

// Names lists the registered middleware in order.
func (m *Manager) Names() []string {
	chain := m.snapshot()
	names := make([]string, len(chain))
	for i, mw := range chain {
		names[i] = mw.Name
	}
	return names
}

func (m *Manager) snapshot() []Middleware {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.chain)
}

// ProcessRequest threads data through every Request hook in registration
// order and stops at the first error.
func (m *Manager) ProcessRequest(ctx context.Context, endpoint string, data Payload) (Payload, error) {
	for _, mw := range m.snapshot() {
		if mw.Request == nil {
			continue
		}
		var err error
		if data, err = mw.Request(ctx, endpoint, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// ProcessResponse threads resp through every Response hook in reverse
// registration order and stops at the first error.
func (m *Manager) ProcessResponse(ctx context.Context, endpoint string, resp any) (any, error) {
	chain := m.snapshot()
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Response == nil {
			continue
		}
		var err error
		if resp, err = chain[i].Response(ctx, endpoint, resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// ProcessError hands err to every Error hook in registration order.
func (m *Manager) ProcessError(ctx context.Context, endpoint string, err error) {
	for _, mw := range m.snapshot() {
		if mw.Error != nil {
			mw.Error(ctx, endpoint, err)
		}
	}
}

// Do runs request hooks, call, then response hooks. Any failure along the
// way goes through the error hooks and is returned unchanged.
//
// Do opens a call scope on ctx (see NewCall), so hooks that keep per-call
// state such as Timing work without extra setup.
func (m *Manager) Do(ctx context.Context, endpoint string, data Payload, call CallFunc) (any, error) {
	ctx = NewCall(ctx)

	data, err := m.ProcessRequest(ctx, endpoint, data)
	if err != nil {
		m.ProcessError(ctx, endpoint, err)
		return nil, err
	}

	resp, err := call(ctx, data)
	if err != nil {
		m.ProcessError(ctx, endpoint, err)
		return nil, err
	}

	resp, err = m.ProcessResponse(ctx, endpoint, resp)
	if err != nil {
		m.ProcessError(ctx, endpoint, err)
		return nil, err
	}
	return resp, nil
}
