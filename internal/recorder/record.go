package recorder

import (
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
)

// TrafficRecord represents a single captured upstream call.
type TrafficRecord struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Key       string            `json:"key"`      // Caller identity: API key, user, IP
	Endpoint  string            `json:"endpoint"` // e.g. "chat.completions"
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CacheOutcome describes how the response cache served a call.
type CacheOutcome string

const (
	CacheHit    CacheOutcome = "hit"
	CacheMiss   CacheOutcome = "miss"
	CacheBypass CacheOutcome = ""
)

// DecisionEvent pairs a traffic record with the admission decision it
// produced and, for cached calls, whether the cache answered it.
// Streamed to websocket clients and printed by replay.
type DecisionEvent struct {
	Record   TrafficRecord    `json:"record"`
	Decision limiter.Decision `json:"decision"`
	Cache    CacheOutcome     `json:"cache,omitempty"`
	Time     time.Time        `json:"time"`
}
