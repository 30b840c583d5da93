package replay

import (
	internalreplay "github.com/SmitUplenchwar2687/Spigot/internal/replay"
	"github.com/SmitUplenchwar2687/Spigot/pkg/cache"
	"github.com/SmitUplenchwar2687/Spigot/pkg/clock"
	"github.com/SmitUplenchwar2687/Spigot/pkg/limiter"
	"github.com/SmitUplenchwar2687/Spigot/pkg/recorder"
)

// Filter defines criteria for selecting traffic records during replay.
type Filter = internalreplay.Filter

// Replayer replays recorded traffic through a rate limiter.
type Replayer = internalreplay.Replayer

// Result captures the outcome of replaying a single record.
type Result = internalreplay.Result

// Summary aggregates replay statistics.
type Summary = internalreplay.Summary

// KeySummary holds per-key replay stats.
type KeySummary = internalreplay.KeySummary

// Option configures a Replayer.
type Option = internalreplay.Option

// New creates a new replayer.
func New(lim limiter.Limiter, vc *clock.VirtualClock, speed float64, filter *Filter, opts ...Option) *Replayer {
	return internalreplay.New(lim, vc, speed, filter, opts...)
}

// WithCache serves repeated requests from c.
func WithCache(c *cache.TTLCache[struct{}]) Option {
	return internalreplay.WithCache(c)
}

// ParseMetadata parses k=v pairs into a metadata criterion.
func ParseMetadata(pairs []string) map[string]string {
	return internalreplay.ParseMetadata(pairs)
}

// RequestKey is the cache key for a recorded request.
func RequestKey(rec recorder.TrafficRecord) (string, error) {
	return internalreplay.RequestKey(rec)
}
