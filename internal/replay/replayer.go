package replay

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/cache"
	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

// Replayer replays recorded traffic through a rate limiter, and optionally
// a response cache, at a configurable speed. Both must run on clock.
type Replayer struct {
	records []recorder.TrafficRecord
	limiter limiter.Limiter
	cache   *cache.TTLCache[struct{}]
	clock   *clock.VirtualClock
	filter  *Filter
	speed   float64 // 1.0 = real-time, 10.0 = 10x, 0 = instant
}

// Result captures the outcome of replaying a single record. A cache hit
// never reaches the limiter, so its Decision is the zero value with
// Allowed set.
type Result struct {
	Record   recorder.TrafficRecord `json:"record"`
	Decision limiter.Decision       `json:"decision"`
	Cache    recorder.CacheOutcome  `json:"cache,omitempty"`
	Time     time.Time              `json:"time"` // virtual time when decision was made
}

// Event converts the result into the form streamed to dashboards.
func (r Result) Event() recorder.DecisionEvent {
	return recorder.DecisionEvent{Record: r.Record, Decision: r.Decision, Cache: r.Cache, Time: r.Time}
}

// Summary aggregates replay statistics.
type Summary struct {
	TotalRecords int                   `json:"total_records"`
	Filtered     int                   `json:"filtered"`
	Replayed     int                   `json:"replayed"`
	Allowed      int                   `json:"allowed"`
	Denied       int                   `json:"denied"`
	CacheHits    int                   `json:"cache_hits"`
	CacheMisses  int                   `json:"cache_misses"`
	Duration     time.Duration         `json:"duration"`      // virtual time span
	WallDuration time.Duration         `json:"wall_duration"` // actual wall clock time
	PerKey       map[string]KeySummary `json:"per_key"`
}

// KeySummary has per-key stats.
type KeySummary struct {
	Allowed   int `json:"allowed"`
	Denied    int `json:"denied"`
	CacheHits int `json:"cache_hits"`
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithCache puts a response cache in front of the limiter. Records with the
// same endpoint and metadata are treated as the same request.
func WithCache(c *cache.TTLCache[struct{}]) Option {
	return func(r *Replayer) { r.cache = c }
}

// New creates a new replayer. A nil filter matches everything.
func New(lim limiter.Limiter, vc *clock.VirtualClock, speed float64, filter *Filter, opts ...Option) *Replayer {
	if speed < 0 {
		speed = 0
	}
	if filter == nil {
		filter = &Filter{}
	}
	r := &Replayer{
		limiter: lim,
		clock:   vc,
		speed:   speed,
		filter:  filter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads traffic records from a JSON reader.
func (r *Replayer) Load(reader io.Reader) error {
	records, err := recorder.LoadJSON(reader)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	r.records = records
	return nil
}

// LoadRecords sets the records directly.
func (r *Replayer) LoadRecords(records []recorder.TrafficRecord) {
	r.records = make([]recorder.TrafficRecord, len(records))
	copy(r.records, records)
}

// RequestKey is the cache key for a recorded request.
func RequestKey(rec recorder.TrafficRecord) (string, error) {
	params := make(map[string]any, len(rec.Metadata))
	for k, v := range rec.Metadata {
		params[k] = v
	}
	return cache.Key([]any{rec.Endpoint}, params)
}

// Run replays all loaded records in timestamp order.
// The callback is called for each replayed record with its decision.
// Returns a summary of the replay.
func (r *Replayer) Run(ctx context.Context, cb func(Result)) (*Summary, error) {
	if len(r.records) == 0 {
		return nil, fmt.Errorf("no records loaded")
	}

	sorted := make([]recorder.TrafficRecord, len(r.records))
	copy(sorted, r.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var filtered []recorder.TrafficRecord
	for _, rec := range sorted {
		if r.filter.Match(rec) {
			filtered = append(filtered, rec)
		}
	}

	summary := &Summary{
		TotalRecords: len(sorted),
		Filtered:     len(filtered),
		PerKey:       make(map[string]KeySummary),
	}
	if len(filtered) == 0 {
		return summary, nil
	}

	wallStart := time.Now()
	baseTime := filtered[0].Timestamp

	for i, rec := range filtered {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		// Advance virtual clock to match the record's timestamp offset.
		if i > 0 {
			gap := rec.Timestamp.Sub(filtered[i-1].Timestamp)
			if gap > 0 {
				if r.speed > 0 {
					// Sleep for scaled wall-clock time for visual effect.
					scaledGap := time.Duration(float64(gap) / r.speed)
					if scaledGap > time.Millisecond {
						select {
						case <-ctx.Done():
							return summary, ctx.Err()
						case <-time.After(scaledGap):
						}
					}
				}
				r.clock.Advance(gap)
			}
		}

		result, err := r.step(ctx, rec)
		if err != nil {
			return summary, err
		}

		summary.Replayed++
		ks := summary.PerKey[rec.Key]
		switch {
		case result.Cache == recorder.CacheHit:
			summary.CacheHits++
			ks.CacheHits++
		case result.Decision.Allowed:
			summary.Allowed++
			ks.Allowed++
		default:
			summary.Denied++
			ks.Denied++
		}
		if result.Cache == recorder.CacheMiss {
			summary.CacheMisses++
		}
		summary.PerKey[rec.Key] = ks

		if cb != nil {
			cb(result)
		}
	}

	lastTime := filtered[len(filtered)-1].Timestamp
	summary.Duration = lastTime.Sub(baseTime)
	summary.WallDuration = time.Since(wallStart)

	return summary, nil
}

// step answers one record from the cache when possible, otherwise asks the
// limiter. Only admitted calls populate the cache.
func (r *Replayer) step(ctx context.Context, rec recorder.TrafficRecord) (Result, error) {
	res := Result{Record: rec, Time: r.clock.Now()}

	var key string
	if r.cache != nil {
		var err error
		if key, err = RequestKey(rec); err != nil {
			return res, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		if _, ok := r.cache.Get(key); ok {
			res.Cache = recorder.CacheHit
			res.Decision = limiter.Decision{Allowed: true}
			return res, nil
		}
		res.Cache = recorder.CacheMiss
	}

	res.Decision = r.limiter.Allow(ctx, rec.Key)
	if r.cache != nil && res.Decision.Allowed {
		r.cache.Set(key, struct{}{})
	}
	return res, nil
}
