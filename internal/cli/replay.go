package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/cache"
	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
	"github.com/SmitUplenchwar2687/Spigot/internal/replay"
)

func newReplayCmd() *cobra.Command {
	var (
		file       string
		configFile string
		lo         limiterOptions
		speed      float64
		keys       []string
		endpoints  []string
		meta       []string
		cacheSize  int
		cacheTTL   time.Duration
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded traffic through a rate limiter and cache",
		Long: `Replays previously recorded traffic through a rate limiter with speed control.

Records are replayed in timestamp order. The virtual clock advances
to match the time gaps between records, so rate limiting behaves
exactly as it would in production, at any speed you choose.

With --cache-ttl, requests with the same endpoint and metadata are
served from a response cache while the entry is fresh and never reach
the limiter.

The file may be a JSON array or newline-delimited JSON.

Speed: 0 = instant, 1 = real-time, 10 = 10x, 100 = 100x`,
		Example: `  spigot replay --file traffic.json
  spigot replay --file traffic.json --speed 100 --algorithm sliding_window
  spigot replay --file traffic.json --keys user1,user2 --endpoints /api
  spigot replay --file traffic.json --meta model=small --cache-ttl 1m
  spigot replay --file traffic.json --speed 0 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			if configFile != "" {
				cfg, err := config.Load(configFile)
				if err != nil {
					return err
				}
				lo.applyConfigIfUnset(cmd, cfg.Limiter.Config)
				if !cmd.Flags().Changed("cache-size") {
					cacheSize = cfg.Cache.MaxSize
				}
			}

			records, err := recorder.LoadFile(file)
			if err != nil {
				return err
			}

			vc := clock.NewVirtualClock(replayStart(records))
			lim, err := createLimiter(lo, vc)
			if err != nil {
				return err
			}

			var opts []replay.Option
			if cacheTTL > 0 {
				c, err := cache.New[struct{}](cacheSize, cacheTTL, cache.WithClock(vc))
				if err != nil {
					return err
				}
				opts = append(opts, replay.WithCache(c))
			}

			filter := &replay.Filter{
				Keys:      keys,
				Endpoints: endpoints,
				Metadata:  replay.ParseMetadata(meta),
			}

			r := replay.New(lim, vc, speed, filter, opts...)
			r.LoadRecords(records)

			out := cmd.OutOrStdout()
			if !outputJSON {
				fmt.Fprintf(out, "Replaying %s at %.0fx speed...\n\n", file, speed)
			}

			var results []replay.Result
			summary, err := r.Run(cmd.Context(), func(res replay.Result) {
				if outputJSON {
					results = append(results, res)
					return
				}
				status := "ALLOW"
				switch {
				case res.Cache == recorder.CacheHit:
					status = "CACHE"
				case !res.Decision.Allowed:
					status = "DENY "
				}
				fmt.Fprintf(out, "  [%s] %s key=%s remaining=%d/%d\n",
					status,
					res.Record.Timestamp.Format("15:04:05"),
					res.Record.Key,
					res.Decision.Remaining,
					res.Decision.Limit)
			})
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(replayOutput{Results: results, Summary: summary})
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "--- Replay Summary ---")
			fmt.Fprintf(out, "  Total records:  %d\n", summary.TotalRecords)
			fmt.Fprintf(out, "  Filtered:       %d\n", summary.Filtered)
			fmt.Fprintf(out, "  Replayed:       %d\n", summary.Replayed)
			fmt.Fprintf(out, "  Allowed:        %d\n", summary.Allowed)
			fmt.Fprintf(out, "  Denied:         %d\n", summary.Denied)
			if cacheTTL > 0 {
				fmt.Fprintf(out, "  Cache hits:     %d\n", summary.CacheHits)
				fmt.Fprintf(out, "  Cache misses:   %d\n", summary.CacheMisses)
			}
			fmt.Fprintf(out, "  Virtual time:   %s\n", summary.Duration)
			fmt.Fprintf(out, "  Wall time:      %s\n", summary.WallDuration.Round(time.Millisecond))

			if len(summary.PerKey) > 1 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  Per key:")
				keys := make([]string, 0, len(summary.PerKey))
				for key := range summary.PerKey {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					ks := summary.PerKey[key]
					fmt.Fprintf(out, "    %s: %d allowed, %d denied, %d cached\n", key, ks.Allowed, ks.Denied, ks.CacheHits)
				}
			}

			if summary.Denied > 0 && summary.Allowed > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, strings.Repeat("=", 50))
				denyRate := float64(summary.Denied) / float64(summary.Replayed) * 100
				fmt.Fprintf(out, "Deny rate: %.1f%% (%d/%d requests denied)\n", denyRate, summary.Denied, summary.Replayed)
				fmt.Fprintln(out, strings.Repeat("=", 50))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to recorded traffic JSON or NDJSON file (required)")
	cmd.Flags().StringVar(&configFile, "config", "", "YAML or JSON config file for limiter settings")
	lo.addFlags(cmd)
	cmd.Flags().Float64Var(&speed, "speed", 0, "replay speed (0=instant, 1=real-time, 10=10x)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "filter by keys (comma-separated)")
	cmd.Flags().StringSliceVar(&endpoints, "endpoints", nil, "filter by endpoints (comma-separated)")
	cmd.Flags().StringSliceVar(&meta, "meta", nil, "filter by metadata key=value pairs (comma-separated)")
	cmd.Flags().IntVar(&cacheSize, "cache-size", 1000, "max entries in the simulated response cache")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 0, "simulate a response cache with this TTL (0 = no cache)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

// replayStart is the earliest record timestamp, so window-aligned limiters
// see the same slots on every run.
func replayStart(records []recorder.TrafficRecord) time.Time {
	if len(records) == 0 {
		return time.Now().Truncate(time.Second)
	}
	start := records[0].Timestamp
	for _, rec := range records[1:] {
		if rec.Timestamp.Before(start) {
			start = rec.Timestamp
		}
	}
	return start
}

type replayOutput struct {
	Results []replay.Result `json:"results"`
	Summary *replay.Summary `json:"summary"`
}

