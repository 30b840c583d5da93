package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "spigot:rl:"

// Both scripts treat a stamp as stale once now - stamp >= window, matching
// the in-memory history.
var redisAdmitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

local allowed = 0
local remaining = 0

if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  allowed = 1
  remaining = limit - (count + 1)
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset = now + window
if oldest ~= nil and #oldest >= 2 then
  reset = tonumber(oldest[2]) + window
end

return {allowed, remaining, reset}
`)

var redisPeekScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
  return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 0 then
  wait = 0
end
return wait
`)

// RedisWindow is a sliding window whose history lives in a Redis sorted set,
// so several processes calling the same upstream can share one budget.
// Admission runs as a single Lua script, which keeps prune, count and record
// atomic across clients. Timestamps have millisecond resolution and should
// come from a real clock.
type RedisWindow struct {
	opts   options
	client redis.UniversalClient
	key    string
	max    int
	window time.Duration

	memberSeq atomic.Uint64
}

// NewRedisWindow creates a shared sliding window stored under key.
func NewRedisWindow(client redis.UniversalClient, key string, max int, window time.Duration, opts ...Option) (*RedisWindow, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidConfig)
	}
	if max <= 0 {
		return nil, fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidConfig, max)
	}
	if window < time.Millisecond {
		return nil, fmt.Errorf("%w: window must be at least 1ms, got %s", ErrInvalidConfig, window)
	}
	return &RedisWindow{
		opts:   buildOptions(DefaultWindowPoll, opts),
		client: client,
		key:    redisKeyPrefix + key,
		max:    max,
		window: window,
	}, nil
}

// AdmitContext checks and records one call in Redis.
func (rw *RedisWindow) AdmitContext(ctx context.Context) (Decision, error) {
	now := rw.opts.clock.Now()
	nowMS := now.UnixMilli()
	member := fmt.Sprintf("%d-%d", now.UnixNano(), rw.memberSeq.Add(1))

	res, err := redisAdmitScript.Run(ctx, rw.client, []string{rw.key}, nowMS, rw.window.Milliseconds(), rw.max, member).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("running redis admit script: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected redis script result: %T", res)
	}
	allowed, err := asInt64(values[0])
	if err != nil {
		return Decision{}, fmt.Errorf("parsing allowed result: %w", err)
	}
	remaining, err := asInt64(values[1])
	if err != nil {
		return Decision{}, fmt.Errorf("parsing remaining result: %w", err)
	}
	reset, err := asInt64(values[2])
	if err != nil {
		return Decision{}, fmt.Errorf("parsing reset result: %w", err)
	}

	d := Decision{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		Limit:     rw.max,
		ResetAt:   time.UnixMilli(reset),
	}
	if !d.Allowed {
		d.RetryAt = d.ResetAt
	}
	rw.opts.report(d.Allowed)
	return d, nil
}

// Admit is AdmitContext without a deadline. A backend failure is logged
// and reported as a denial.
func (rw *RedisWindow) Admit() Decision {
	d, err := rw.AdmitContext(context.Background())
	if err != nil {
		now := rw.opts.clock.Now()
		rw.opts.logger.Error("redis window check failed", "limiter", rw.opts.name, "key", rw.key, "error", err)
		rw.opts.report(false)
		return Decision{
			Limit:   rw.max,
			ResetAt: now.Add(rw.window),
			RetryAt: now.Add(time.Second),
		}
	}
	return d
}

func (rw *RedisWindow) TryAcquire() bool {
	return rw.Admit().Allowed
}

// Wait polls until admitted. Unlike TryAcquire it returns backend errors
// instead of retrying through them.
func (rw *RedisWindow) Wait(ctx context.Context) error {
	return pollUntil(ctx, &rw.opts, func(ctx context.Context) (bool, error) {
		d, err := rw.AdmitContext(ctx)
		return d.Allowed, err
	})
}

// TimeUntilAvailableContext asks Redis how long until the oldest stamp
// leaves the window.
func (rw *RedisWindow) TimeUntilAvailableContext(ctx context.Context) (time.Duration, error) {
	nowMS := rw.opts.clock.Now().UnixMilli()
	res, err := redisPeekScript.Run(ctx, rw.client, []string{rw.key}, nowMS, rw.window.Milliseconds(), rw.max).Result()
	if err != nil {
		return 0, fmt.Errorf("running redis peek script: %w", err)
	}
	ms, err := asInt64(res)
	if err != nil {
		return 0, fmt.Errorf("parsing peek result: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// TimeUntilAvailable falls back to a full window when Redis is unreachable.
func (rw *RedisWindow) TimeUntilAvailable() time.Duration {
	d, err := rw.TimeUntilAvailableContext(context.Background())
	if err != nil {
		rw.opts.logger.Warn("redis window peek failed", "limiter", rw.opts.name, "key", rw.key, "error", err)
		return rw.window
	}
	return d
}

// Reset deletes the shared history.
func (rw *RedisWindow) Reset(ctx context.Context) error {
	return rw.client.Del(ctx, rw.key).Err()
}

func asInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse int64 from %q: %w", x, err)
		}
		return n, nil
	case nil:
		return 0, errors.New("nil result")
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
