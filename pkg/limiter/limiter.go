package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	internallimiter "github.com/SmitUplenchwar2687/Spigot/internal/limiter"
)

// Algorithm identifies a rate limiting algorithm.
type Algorithm = internallimiter.Algorithm

const (
	AlgorithmTokenBucket   = internallimiter.AlgorithmTokenBucket
	AlgorithmSlidingWindow = internallimiter.AlgorithmSlidingWindow
	AlgorithmFixedWindow   = internallimiter.AlgorithmFixedWindow
)

var (
	ErrInvalidConfig   = internallimiter.ErrInvalidConfig
	ErrExceedsCapacity = internallimiter.ErrExceedsCapacity
)

// Admitter is a single throttle shared by its callers.
type Admitter = internallimiter.Admitter

// Limiter is the per-key rate limiting interface.
type Limiter = internallimiter.Limiter

// Decision captures the result of a rate limit check.
type Decision = internallimiter.Decision

// Config holds parameters for creating a limiter.
type Config = internallimiter.Config

// Option configures a limiter.
type Option = internallimiter.Option

// Observer receives admission events.
type Observer = internallimiter.Observer

// RedisConfig configures the shared Redis backend.
type RedisConfig = internallimiter.RedisConfig

type (
	TokenBucket        = internallimiter.TokenBucket
	SlidingWindow      = internallimiter.SlidingWindow
	AsyncSlidingWindow = internallimiter.AsyncSlidingWindow
	FixedWindow        = internallimiter.FixedWindow
	RedisWindow        = internallimiter.RedisWindow
	Group              = internallimiter.Group
)

var (
	WithClock        = internallimiter.WithClock
	WithPollInterval = internallimiter.WithPollInterval
	WithObserver     = internallimiter.WithObserver
	WithName         = internallimiter.WithName
	WithLogger       = internallimiter.WithLogger
)

// New builds one Admitter from cfg.
func New(cfg Config, opts ...Option) (Admitter, error) {
	return internallimiter.New(cfg, opts...)
}

// NewGroup returns a per-key limiter whose members are built from cfg.
func NewGroup(cfg Config, opts ...Option) (*Group, error) {
	return internallimiter.NewGroup(cfg, opts...)
}

// NewRedisGroup returns a per-key limiter backed by Redis sliding windows.
func NewRedisGroup(client redis.UniversalClient, prefix string, cfg Config, opts ...Option) (*Group, error) {
	return internallimiter.NewRedisGroup(client, prefix, cfg, opts...)
}

// NewTokenBucket creates a token bucket holding up to capacity tokens and
// refilling refillRate tokens per second.
func NewTokenBucket(capacity, refillRate float64, opts ...Option) (*TokenBucket, error) {
	return internallimiter.NewTokenBucket(capacity, refillRate, opts...)
}

// NewSlidingWindow admits at most max calls in any window.
func NewSlidingWindow(max int, window time.Duration, opts ...Option) (*SlidingWindow, error) {
	return internallimiter.NewSlidingWindow(max, window, opts...)
}

// NewAsyncSlidingWindow is NewSlidingWindow with context-aware locking.
func NewAsyncSlidingWindow(max int, window time.Duration, opts ...Option) (*AsyncSlidingWindow, error) {
	return internallimiter.NewAsyncSlidingWindow(max, window, opts...)
}

// NewFixedWindow admits at most limit calls per aligned window.
func NewFixedWindow(limit int, window time.Duration, opts ...Option) (*FixedWindow, error) {
	return internallimiter.NewFixedWindow(limit, window, opts...)
}

// NewRedisWindow creates a sliding window stored in Redis under key.
func NewRedisWindow(client redis.UniversalClient, key string, max int, window time.Duration, opts ...Option) (*RedisWindow, error) {
	return internallimiter.NewRedisWindow(client, key, max, window, opts...)
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	return internallimiter.NewRedisClient(ctx, cfg)
}
