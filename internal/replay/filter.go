package replay

import (
	"path"
	"slices"
	"strings"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

// Filter defines criteria for selecting traffic records during replay.
type Filter struct {
	Keys      []string          // Only include these keys (empty = all)
	Endpoints []string          // Substrings or glob patterns (empty = all)
	Metadata  map[string]string // Every pair must be present on the record
	After     time.Time         // Only include records after this time (zero = no limit)
	Before    time.Time         // Only include records before this time (zero = no limit)
}

// Match returns true if the record passes the filter.
func (f *Filter) Match(r recorder.TrafficRecord) bool {
	if len(f.Keys) > 0 && !slices.Contains(f.Keys, r.Key) {
		return false
	}
	if len(f.Endpoints) > 0 && !matchEndpoint(f.Endpoints, r.Endpoint) {
		return false
	}
	for k, v := range f.Metadata {
		if got, ok := r.Metadata[k]; !ok || got != v {
			return false
		}
	}
	if !f.After.IsZero() && !r.Timestamp.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !r.Timestamp.Before(f.Before) {
		return false
	}
	return true
}

// ParseMetadata turns "k=v" pairs, as given on the command line, into a
// metadata criterion. Pairs without "=" match an empty value.
func ParseMetadata(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func matchEndpoint(patterns []string, endpoint string) bool {
	for _, p := range patterns {
		if p == endpoint || strings.Contains(endpoint, p) {
			return true
		}
		if ok, err := path.Match(p, endpoint); err == nil && ok {
			return true
		}
	}
	return false
}
