package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SmitUplenchwar2687/Spigot/internal/cache"
	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
	"github.com/SmitUplenchwar2687/Spigot/internal/middleware"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
	"github.com/SmitUplenchwar2687/Spigot/internal/stream"
)

const maxCacheBody = 1 << 20

// Options configures optional server features. Nil fields disable the
// matching routes or behavior.
type Options struct {
	Hub         *Hub
	Recorder    *recorder.Recorder
	Cache       *cache.TTLCache[json.RawMessage]
	Middleware  *middleware.Manager
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

// Server is the Spigot HTTP server. It exposes the limiter and response
// cache over HTTP so clients and dashboards can exercise them.
type Server struct {
	httpServer *http.Server
	limiter    limiter.Limiter
	clock      clock.Clock
	opts       Options
	log        *slog.Logger
	mux        *http.ServeMux
}

// New creates a new Spigot server.
func New(addr string, lim limiter.Limiter, clk clock.Clock, opts ...Options) *Server {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MetricsPath == "" {
		o.MetricsPath = "/metrics"
	}

	s := &Server{
		limiter: lim,
		clock:   clk,
		opts:    o,
		log:     o.Logger,
		mux:     http.NewServeMux(),
	}
	s.routes()

	var handler http.Handler = s.mux
	if o.Recorder != nil {
		handler = RecordingMiddleware(handler, o.Recorder, clk, o.Logger)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, recording included.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/check", s.handleCheck)
	s.mux.HandleFunc("GET /api/check/{key...}", s.handleCheckKey)
	s.mux.HandleFunc("GET /api/stream/{key}", s.handleStream)

	if s.opts.Cache != nil {
		s.mux.HandleFunc("GET /api/cache", s.handleCacheStats)
		s.mux.HandleFunc("DELETE /api/cache", s.handleCacheClear)
		s.mux.HandleFunc("GET /api/cache/{key}", s.handleCacheGet)
		s.mux.HandleFunc("PUT /api/cache/{key}", s.handleCachePut)
		s.mux.HandleFunc("DELETE /api/cache/{key}", s.handleCacheDelete)
	}
	if s.opts.Metrics != nil {
		s.mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics)
	}
	if s.opts.Hub != nil {
		s.mux.HandleFunc("GET /ws", s.opts.Hub.HandleWebSocket)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleRoot serves a welcome message.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "spigot",
		"status":  "running",
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCheck performs a rate limit check using the client IP as the key.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithDecision(w, r, clientKey(r))
}

// handleCheckKey performs a rate limit check using the key from the URL path.
func (s *Server) handleCheckKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	s.respondWithDecision(w, r, key)
}

func (s *Server) respondWithDecision(w http.ResponseWriter, r *http.Request, key string) {
	decision := s.limiter.Allow(r.Context(), key)
	s.publish(r, key, decision, recorder.CacheBypass)

	s.setRateLimitHeaders(w, decision)
	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, decision)
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, d limiter.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", d.ResetAt.Format(time.RFC3339))
	if !d.Allowed {
		retry := 1
		if !d.RetryAt.IsZero() {
			retry = int(d.RetryAt.Sub(s.clock.Now()).Seconds()) + 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}
}

func (s *Server) publish(r *http.Request, key string, d limiter.Decision, outcome recorder.CacheOutcome) {
	if s.opts.Hub == nil {
		return
	}
	now := s.clock.Now()
	s.opts.Hub.Broadcast(&recorder.DecisionEvent{
		Record: recorder.TrafficRecord{
			Timestamp: now,
			Key:       key,
			Endpoint:  r.Method + " " + r.URL.Path,
		},
		Decision: d,
		Cache:    outcome,
		Time:     now,
	})
}

type cacheStats struct {
	cache.Stats
	MaxSize int    `json:"max_size"`
	TTL     string `json:"ttl"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	c := s.opts.Cache
	writeJSON(w, http.StatusOK, cacheStats{Stats: c.Stats(), MaxSize: c.MaxSize(), TTL: c.TTL().String()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.opts.Cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	v, ok := s.opts.Cache.Get(key)
	if !ok {
		s.publish(r, key, limiter.Decision{Allowed: true}, recorder.CacheMiss)
		w.Header().Set("X-Cache", "MISS")
		writeError(w, http.StatusNotFound, "not cached")
		return
	}
	s.publish(r, key, limiter.Decision{Allowed: true}, recorder.CacheHit)
	w.Header().Set("X-Cache", "HIT")
	w.Header().Set("Content-Type", "application/json")
	w.Write(v)
}

func (s *Server) handleCachePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCacheBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}
	s.opts.Cache.Set(r.PathValue("key"), json.RawMessage(body))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	s.opts.Cache.Invalidate(r.PathValue("key"))
	w.WriteHeader(http.StatusNoContent)
}

// handleStream rate-limits key, then streams the words of ?prompt back as
// server-sent completion chunks. Request and response pass through the
// middleware chain when one is configured.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	decision := s.limiter.Allow(r.Context(), key)
	s.publish(r, key, decision, recorder.CacheBypass)
	s.setRateLimitHeaders(w, decision)
	if !decision.Allowed {
		writeJSON(w, http.StatusTooManyRequests, decision)
		return
	}

	payload := middleware.Payload{"key": key, "prompt": r.URL.Query().Get("prompt")}
	generate := func(_ context.Context, p middleware.Payload) (any, error) {
		prompt, _ := p["prompt"].(string)
		return echoChunks(prompt), nil
	}

	var (
		out any
		err error
	)
	if s.opts.Middleware != nil {
		out, err = s.opts.Middleware.Do(r.Context(), "stream", payload, generate)
	} else {
		out, err = generate(r.Context(), payload)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	chunks, ok := out.([]stream.Chunk)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("unexpected response type %T", out))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)
	for _, c := range chunks {
		if err := stream.EncodeSSE(w, c); err != nil {
			s.log.Warn("stream write failed", "key", key, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	stream.EncodeDone(w)
}

// echoChunks splits prompt into one chunk per word, keeping the spacing.
func echoChunks(prompt string) []stream.Chunk {
	words := strings.Fields(prompt)
	chunks := make([]stream.Chunk, 0, len(words)+1)
	chunks = append(chunks, stream.Chunk{Choices: []stream.Choice{{Delta: stream.Delta{Role: "assistant"}}}})
	for i, word := range words {
		if i > 0 {
			word = " " + word
		}
		chunks = append(chunks, stream.Chunk{Choices: []stream.Choice{{Delta: stream.Delta{Content: word}}}})
	}
	chunks[len(chunks)-1].Choices[0].FinishReason = "stop"
	return chunks
}

func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.log.Info("spigot server listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
