package replay

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

func TestFilter_Empty_MatchesAll(t *testing.T) {
	f := Filter{}
	r := recorder.TrafficRecord{Timestamp: epoch, Key: "any", Endpoint: "embeddings"}
	if !f.Match(r) {
		t.Error("empty filter should match all records")
	}
}

func TestFilter_Keys(t *testing.T) {
	f := Filter{Keys: []string{"user1", "user2"}}

	if !f.Match(recorder.TrafficRecord{Key: "user1"}) {
		t.Error("should match user1")
	}
	if !f.Match(recorder.TrafficRecord{Key: "user2"}) {
		t.Error("should match user2")
	}
	if f.Match(recorder.TrafficRecord{Key: "user3"}) {
		t.Error("should not match user3")
	}
}

func TestFilter_Endpoints(t *testing.T) {
	f := Filter{Endpoints: []string{"chat"}}

	if !f.Match(recorder.TrafficRecord{Endpoint: "chat.completions"}) {
		t.Error("should match chat.completions")
	}
	if !f.Match(recorder.TrafficRecord{Endpoint: "chat"}) {
		t.Error("should match chat")
	}
	if f.Match(recorder.TrafficRecord{Endpoint: "embeddings"}) {
		t.Error("should not match embeddings")
	}
}

func TestFilter_EndpointGlob(t *testing.T) {
	f := Filter{Endpoints: []string{"models/*/generate"}}

	if !f.Match(recorder.TrafficRecord{Endpoint: "models/gpt/generate"}) {
		t.Error("should match models/gpt/generate")
	}
	if f.Match(recorder.TrafficRecord{Endpoint: "models/gpt/embed"}) {
		t.Error("should not match models/gpt/embed")
	}
}

func TestFilter_Metadata(t *testing.T) {
	f := Filter{Metadata: map[string]string{"model": "large"}}

	if !f.Match(recorder.TrafficRecord{Metadata: map[string]string{"model": "large", "region": "eu"}}) {
		t.Error("should match when the pair is present")
	}
	if f.Match(recorder.TrafficRecord{Metadata: map[string]string{"model": "small"}}) {
		t.Error("should not match a different value")
	}
	if f.Match(recorder.TrafficRecord{}) {
		t.Error("should not match a record without metadata")
	}
}

func TestParseMetadata(t *testing.T) {
	got := ParseMetadata([]string{"model=large", " region = eu ", "flag"})
	want := map[string]string{"model": "large", "region": "eu", "flag": ""}
	if len(got) != len(want) {
		t.Fatalf("ParseMetadata() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ParseMetadata()[%q] = %q, want %q", k, got[k], v)
		}
	}
	if ParseMetadata(nil) != nil {
		t.Error("no pairs should give a nil criterion")
	}
}

func TestFilter_After(t *testing.T) {
	f := Filter{After: epoch.Add(5 * time.Minute)}

	if f.Match(recorder.TrafficRecord{Timestamp: epoch}) {
		t.Error("should not match record before After")
	}
	if f.Match(recorder.TrafficRecord{Timestamp: epoch.Add(5 * time.Minute)}) {
		t.Error("should not match record at exact After boundary")
	}
	if !f.Match(recorder.TrafficRecord{Timestamp: epoch.Add(6 * time.Minute)}) {
		t.Error("should match record after After")
	}
}

func TestFilter_Before(t *testing.T) {
	f := Filter{Before: epoch.Add(5 * time.Minute)}

	if !f.Match(recorder.TrafficRecord{Timestamp: epoch}) {
		t.Error("should match record before Before")
	}
	if f.Match(recorder.TrafficRecord{Timestamp: epoch.Add(5 * time.Minute)}) {
		t.Error("should not match record at exact Before boundary")
	}
	if f.Match(recorder.TrafficRecord{Timestamp: epoch.Add(6 * time.Minute)}) {
		t.Error("should not match record after Before")
	}
}

func TestFilter_Combined(t *testing.T) {
	f := Filter{
		Keys:      []string{"user1"},
		Endpoints: []string{"chat"},
		After:     epoch,
		Before:    epoch.Add(10 * time.Minute),
	}

	// Matches all criteria.
	if !f.Match(recorder.TrafficRecord{
		Timestamp: epoch.Add(5 * time.Minute),
		Key:       "user1",
		Endpoint:  "chat.completions",
	}) {
		t.Error("should match record meeting all criteria")
	}

	// Wrong key.
	if f.Match(recorder.TrafficRecord{
		Timestamp: epoch.Add(5 * time.Minute),
		Key:       "user2",
		Endpoint:  "chat.completions",
	}) {
		t.Error("should not match wrong key")
	}

	// Wrong time.
	if f.Match(recorder.TrafficRecord{
		Timestamp: epoch.Add(15 * time.Minute),
		Key:       "user1",
		Endpoint:  "chat.completions",
	}) {
		t.Error("should not match record outside time range")
	}
}
