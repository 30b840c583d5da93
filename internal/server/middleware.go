package server

import (
	"log/slog"
	"net/http"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

// RecordingMiddleware wraps an http.Handler and records every API request
// so the traffic can be replayed later. Health, metrics and websocket
// requests are not recorded.
func RecordingMiddleware(next http.Handler, rec *recorder.Recorder, clk clock.Clock, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !recordable(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tr := recorder.TrafficRecord{
			Timestamp: clk.Now(),
			Key:       clientKey(r),
			Endpoint:  r.Method + " " + r.URL.Path,
		}
		meta := map[string]string{}
		if ua := r.UserAgent(); ua != "" {
			meta["user_agent"] = ua
		}
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				meta[k] = v[0]
			}
		}
		if len(meta) > 0 {
			tr.Metadata = meta
		}

		if err := rec.Record(tr); err != nil {
			logger.Warn("record error", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func recordable(path string) bool {
	return len(path) >= len("/api/") && path[:len("/api/")] == "/api/"
}
