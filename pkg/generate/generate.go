// Package generate builds synthetic API traffic for replay experiments.
package generate

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/pkg/recorder"
)

const (
	// PatternSteady generates evenly distributed traffic.
	PatternSteady = "steady"
	// PatternBurst generates clustered bursts with quiet gaps.
	PatternBurst = "burst"
	// PatternRamp generates traffic density that increases over time.
	PatternRamp = "ramp"
)

// DefaultEndpoints is the endpoint pool used when Options.Endpoints is empty.
var DefaultEndpoints = []string{
	"POST /v1/chat/completions",
	"POST /v1/completions",
	"POST /v1/embeddings",
	"GET /v1/models",
}

// DefaultModels is the model pool used when Options.Models is empty.
var DefaultModels = []string{"small", "medium", "large"}

// Options controls how synthetic traffic is generated.
type Options struct {
	Count     int
	Keys      int
	Duration  time.Duration
	Pattern   string
	Start     time.Time
	Seed      int64 // 0 picks a time-based seed
	Endpoints []string
	Models    []string

	// Prompts bounds the distinct prompt_id values, so some requests
	// repeat and can be served from a cache. 0 means 20.
	Prompts int
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		Count:    100,
		Keys:     3,
		Duration: 5 * time.Minute,
		Pattern:  PatternSteady,
		Prompts:  20,
	}
}

// GenerateTraffic creates synthetic traffic records. Every record carries
// model and prompt_id metadata.
func GenerateTraffic(opts Options) ([]recorder.TrafficRecord, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", opts.Count)
	}
	if opts.Keys <= 0 {
		return nil, fmt.Errorf("keys must be positive, got %d", opts.Keys)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}

	var offsets func(*rand.Rand, int, time.Duration) []time.Duration
	switch opts.Pattern {
	case "", PatternSteady:
		offsets = steadyOffsets
	case PatternBurst:
		offsets = burstOffsets
	case PatternRamp:
		offsets = rampOffsets
	default:
		return nil, fmt.Errorf("unknown pattern %q, must be steady, burst or ramp", opts.Pattern)
	}

	if opts.Start.IsZero() {
		opts.Start = time.Now().Truncate(time.Second)
	}
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = DefaultEndpoints
	}
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if opts.Prompts <= 0 {
		opts.Prompts = 20
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	keys := makeUserKeys(opts.Keys)

	offs := offsets(rng, opts.Count, opts.Duration)
	records := make([]recorder.TrafficRecord, len(offs))
	for i, off := range offs {
		records[i] = recorder.TrafficRecord{
			Timestamp: opts.Start.Add(off),
			Key:       keys[rng.Intn(len(keys))],
			Endpoint:  opts.Endpoints[rng.Intn(len(opts.Endpoints))],
			Metadata: map[string]string{
				"model":     opts.Models[rng.Intn(len(opts.Models))],
				"prompt_id": fmt.Sprintf("p%02d", rng.Intn(opts.Prompts)),
			},
		}
	}
	return records, nil
}

func makeUserKeys(numKeys int) []string {
	userKeys := make([]string, numKeys)
	for i := range userKeys {
		userKeys[i] = fmt.Sprintf("user-%d", i+1)
	}
	return userKeys
}

func steadyOffsets(_ *rand.Rand, count int, dur time.Duration) []time.Duration {
	interval := dur / time.Duration(count)
	offsets := make([]time.Duration, count)
	for i := range offsets {
		offsets[i] = time.Duration(i) * interval
	}
	return offsets
}

func burstOffsets(rng *rand.Rand, count int, dur time.Duration) []time.Duration {
	const numBursts = 4
	offsets := make([]time.Duration, 0, count)
	burstSize := count / numBursts
	burstGap := dur / numBursts

	for b := 0; b < numBursts; b++ {
		burstStart := time.Duration(b) * burstGap
		for i := 0; i < burstSize; i++ {
			// Requests within a burst land inside one second.
			offsets = append(offsets, burstStart+time.Duration(rng.Intn(1000))*time.Millisecond)
		}
	}
	for len(offsets) < count {
		offsets = append(offsets, time.Duration(rng.Int63n(int64(dur))))
	}
	return offsets
}

// rampOffsets places request i at sqrt(i/count) of the span, so gaps
// shrink towards the end.
func rampOffsets(_ *rand.Rand, count int, dur time.Duration) []time.Duration {
	offsets := make([]time.Duration, count)
	for i := range offsets {
		offsets[i] = time.Duration(math.Sqrt(float64(i)/float64(count)) * float64(dur))
	}
	return offsets
}
