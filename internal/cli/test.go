package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/cache"
	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

func newTestCmd() *cobra.Command {
	var (
		configFile  string
		lo          limiterOptions
		requests    int
		keys        []string
		fastForward time.Duration
		cacheTTL    time.Duration
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run rate limit and cache scenarios with time travel",
		Long: `Runs rate limit checks against a virtual clock, allowing you to
fast-forward time without waiting. This lets you verify limiter and
cache behavior over hours or days in seconds.

The test sends a batch of requests, optionally fast-forwards time,
then sends another batch to show how limits reset. With --cache-ttl
each key's response is cached after its first admitted request, and
cache hits skip the limiter until the entry expires.`,
		Example: `  spigot test --requests 20 --rate 10 --window 1m
  spigot test --algorithm sliding_window --rate 5 --window 30s --fast-forward 1m
  spigot test --cache-ttl 30s --fast-forward 1m
  spigot test --keys user1,user2 --requests 15 --rate 10 --window 1m --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				cfg, err := config.Load(configFile)
				if err != nil {
					return err
				}
				lo.applyConfigIfUnset(cmd, cfg.Limiter.Config)
			}
			if len(keys) == 0 {
				keys = []string{"test-user"}
			}

			vc := clock.NewVirtualClock(time.Now().Truncate(time.Second))
			lim, err := createLimiter(lo, vc)
			if err != nil {
				return err
			}

			var c *cache.TTLCache[struct{}]
			if cacheTTL > 0 {
				if c, err = cache.New[struct{}](len(keys), cacheTTL, cache.WithClock(vc)); err != nil {
					return err
				}
			}

			result := runTest(vc, lim, c, keys, requests, fastForward)

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printTestResult(out, &result)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML or JSON config file for limiter settings")
	lo.addFlags(cmd)
	cmd.Flags().IntVar(&requests, "requests", 15, "number of requests to send per batch")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "comma-separated rate limit keys to test")
	cmd.Flags().DurationVar(&fastForward, "fast-forward", 0, "time to fast-forward between batches")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 0, "cache each key's response for this long (0 = no cache)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

// TestResult captures the full output of a test run.
type TestResult struct {
	Algorithm   string             `json:"algorithm"`
	Rate        int                `json:"rate"`
	Window      string             `json:"window"`
	FastForward string             `json:"fast_forward,omitempty"`
	Batches     []BatchResult      `json:"batches"`
	Summary     map[string]Summary `json:"summary"`
	Cache       *cache.Stats       `json:"cache,omitempty"`
}

// BatchResult captures results for one batch of requests.
type BatchResult struct {
	Label     string           `json:"label"`
	Time      string           `json:"time"`
	Decisions []DecisionRecord `json:"decisions"`
}

// DecisionRecord is a single rate limit check result.
type DecisionRecord struct {
	Key      string                `json:"key"`
	Decision limiter.Decision      `json:"decision"`
	Cache    recorder.CacheOutcome `json:"cache,omitempty"`
}

// Summary aggregates stats per key.
type Summary struct {
	TotalRequests int `json:"total_requests"`
	Allowed       int `json:"allowed"`
	Denied        int `json:"denied"`
	CacheHits     int `json:"cache_hits,omitempty"`
}

func runTest(vc *clock.VirtualClock, lim *limiter.Group, c *cache.TTLCache[struct{}], keys []string, requests int, fastForward time.Duration) TestResult {
	cfg := lim.Config()
	result := TestResult{
		Algorithm: string(cfg.Algorithm),
		Rate:      cfg.Rate,
		Window:    cfg.Window.String(),
		Summary:   make(map[string]Summary),
	}

	result.Batches = append(result.Batches, runBatch(vc, lim, c, keys, requests, "Initial requests", result.Summary))

	if fastForward > 0 {
		vc.Advance(fastForward)
		result.FastForward = fastForward.String()
		label := fmt.Sprintf("After fast-forward %s", fastForward)
		result.Batches = append(result.Batches, runBatch(vc, lim, c, keys, requests, label, result.Summary))
	}

	if c != nil {
		stats := c.Stats()
		result.Cache = &stats
	}
	return result
}

func runBatch(vc *clock.VirtualClock, lim *limiter.Group, c *cache.TTLCache[struct{}], keys []string, requests int, label string, summary map[string]Summary) BatchResult {
	ctx := context.Background()
	batch := BatchResult{
		Label: label,
		Time:  vc.Now().Format(time.RFC3339),
	}

	for i := 0; i < requests; i++ {
		for _, key := range keys {
			dr := DecisionRecord{Key: key}
			s := summary[key]
			s.TotalRequests++

			if c != nil {
				if _, ok := c.Get(key); ok {
					dr.Cache = recorder.CacheHit
					dr.Decision = limiter.Decision{Allowed: true}
					s.CacheHits++
					s.Allowed++
					summary[key] = s
					batch.Decisions = append(batch.Decisions, dr)
					continue
				}
				dr.Cache = recorder.CacheMiss
			}

			dr.Decision = lim.Allow(ctx, key)
			if dr.Decision.Allowed {
				s.Allowed++
				if c != nil {
					c.Set(key, struct{}{})
				}
			} else {
				s.Denied++
			}
			summary[key] = s
			batch.Decisions = append(batch.Decisions, dr)
		}
	}
	return batch
}

func printTestResult(w io.Writer, r *TestResult) {
	fmt.Fprintln(w, "=== Spigot Test ===")
	fmt.Fprintf(w, "%s: %d per %s\n\n", r.Algorithm, r.Rate, r.Window)

	for _, batch := range r.Batches {
		fmt.Fprintf(w, "--- %s (at %s) ---\n", batch.Label, batch.Time)
		for i, dr := range batch.Decisions {
			status := "ALLOW"
			switch {
			case dr.Cache == recorder.CacheHit:
				status = "CACHE"
			case !dr.Decision.Allowed:
				status = "DENY "
			}
			fmt.Fprintf(w, "  #%03d [%s] key=%s remaining=%d/%d\n",
				i+1, status, dr.Key, dr.Decision.Remaining, dr.Decision.Limit)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Summary ---")
	keys := make([]string, 0, len(r.Summary))
	for key := range r.Summary {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		s := r.Summary[key]
		fmt.Fprintf(w, "  %s: %d total, %d allowed, %d denied, %d cached\n",
			key, s.TotalRequests, s.Allowed, s.Denied, s.CacheHits)
	}
	if r.Cache != nil {
		fmt.Fprintf(w, "  cache: %d hits, %d misses, %d expired\n", r.Cache.Hits, r.Cache.Misses, r.Cache.Expirations)
	}

	if r.FastForward != "" {
		fmt.Fprintf(w, "\nTime travel: fast-forwarded %s\n", r.FastForward)
	}

	if recovered(r) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("=", 50))
		fmt.Fprintln(w, "Time travel worked! Requests were denied, then")
		fmt.Fprintln(w, "allowed again after fast-forwarding the clock.")
		fmt.Fprintln(w, strings.Repeat("=", 50))
	}
}

// recovered reports whether the first batch saw a denial and the second
// batch admitted through the limiter.
func recovered(r *TestResult) bool {
	if len(r.Batches) < 2 {
		return false
	}
	denied := false
	for _, dr := range r.Batches[0].Decisions {
		if !dr.Decision.Allowed {
			denied = true
			break
		}
	}
	if !denied {
		return false
	}
	for _, dr := range r.Batches[1].Decisions {
		if dr.Decision.Allowed && dr.Cache != recorder.CacheHit {
			return true
		}
	}
	return false
}
