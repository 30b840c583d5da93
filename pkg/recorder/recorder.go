package recorder

import (
	"io"

	internalrecorder "github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

// TrafficRecord represents a single captured request.
type TrafficRecord = internalrecorder.TrafficRecord

// DecisionEvent pairs a traffic record with the produced decision.
type DecisionEvent = internalrecorder.DecisionEvent

// CacheOutcome says whether a request was served from cache.
type CacheOutcome = internalrecorder.CacheOutcome

const (
	CacheHit    = internalrecorder.CacheHit
	CacheMiss   = internalrecorder.CacheMiss
	CacheBypass = internalrecorder.CacheBypass
)

// Recorder captures traffic records for later replay.
type Recorder = internalrecorder.Recorder

// New creates a new Recorder.
func New(w io.Writer) *Recorder {
	return internalrecorder.New(w)
}

// LoadJSON reads traffic records from a JSON array.
func LoadJSON(r io.Reader) ([]TrafficRecord, error) {
	return internalrecorder.LoadJSON(r)
}

// LoadNDJSON reads newline-delimited traffic records.
func LoadNDJSON(r io.Reader) ([]TrafficRecord, error) {
	return internalrecorder.LoadNDJSON(r)
}

// LoadFile reads a JSON array or NDJSON file.
func LoadFile(path string) ([]TrafficRecord, error) {
	return internalrecorder.LoadFile(path)
}
