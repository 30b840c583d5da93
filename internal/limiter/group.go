package limiter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Group implements Limiter by giving every key its own Admitter built from
// one Config. Members are created on first use and live as long as the group.
type Group struct {
	cfg   Config
	build func(key string) (Admitter, error)

	mu      sync.Mutex
	members map[string]Admitter
}

// NewGroup validates cfg and returns an empty group.
func NewGroup(cfg Config, opts ...Option) (*Group, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newGroup(cfg, func(string) (Admitter, error) { return New(cfg, opts...) })
}

// NewRedisGroup returns a group whose members are RedisWindows named
// prefix+key, so every process sharing client and prefix shares each key's
// budget. cfg.Algorithm is ignored: shared state is always a sliding window.
func NewRedisGroup(client redis.UniversalClient, prefix string, cfg Config, opts ...Option) (*Group, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: redis key prefix is required", ErrInvalidConfig)
	}
	cfg.Algorithm = AlgorithmSlidingWindow
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	if cfg.Window < time.Millisecond {
		return nil, fmt.Errorf("%w: redis window must be at least 1ms, got %s", ErrInvalidConfig, cfg.Window)
	}
	return newGroup(cfg, func(key string) (Admitter, error) {
		return NewRedisWindow(client, prefix+key, cfg.Rate, cfg.Window, opts...)
	})
}

// newGroup builds one throwaway member so that a config the member
// constructor rejects fails here instead of on first use.
func newGroup(cfg Config, build func(key string) (Admitter, error)) (*Group, error) {
	if _, err := build(""); err != nil {
		return nil, err
	}
	return &Group{
		cfg:     cfg,
		build:   build,
		members: make(map[string]Admitter),
	}, nil
}

// Allow admits one call for key. A member that cannot be built denies.
func (g *Group) Allow(_ context.Context, key string) Decision {
	a, err := g.Get(key)
	if err != nil {
		return Decision{Limit: g.cfg.Rate}
	}
	return a.Admit()
}

// Get returns the admitter for key, creating it if needed.
func (g *Group) Get(key string) (Admitter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if a, ok := g.members[key]; ok {
		return a, nil
	}
	a, err := g.build(key)
	if err != nil {
		return nil, fmt.Errorf("building limiter for %q: %w", key, err)
	}
	g.members[key] = a
	return a, nil
}

// Keys returns the keys seen so far, sorted.
func (g *Group) Keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]string, 0, len(g.members))
	for k := range g.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Config returns the configuration every member is built from.
func (g *Group) Config() Config { return g.cfg }
