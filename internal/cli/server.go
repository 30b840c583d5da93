package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/cache"
	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
	"github.com/SmitUplenchwar2687/Spigot/internal/logger"
	"github.com/SmitUplenchwar2687/Spigot/internal/metrics"
	"github.com/SmitUplenchwar2687/Spigot/internal/middleware"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
	"github.com/SmitUplenchwar2687/Spigot/internal/server"
)

type serverOptions struct {
	configFile string
	addr       string
	recordFile string
	cacheSize  int
	cacheTTL   time.Duration
	noMetrics  bool
	logLevel   string
	logFormat  string
	limiter    limiterOptions
	backend    backendOptions
}

func (o *serverOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configFile, "config", "", "YAML or JSON config file")
	cmd.Flags().StringVar(&o.addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&o.recordFile, "record", "", "record traffic to JSON file (exported on shutdown)")
	cmd.Flags().IntVar(&o.cacheSize, "cache-size", 1000, "max entries in the response cache")
	cmd.Flags().DurationVar(&o.cacheTTL, "cache-ttl", 5*time.Minute, "response cache entry lifetime")
	cmd.Flags().BoolVar(&o.noMetrics, "no-metrics", false, "disable the Prometheus endpoint")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&o.logFormat, "log-format", "text", "log format (text, json)")
	o.limiter.addFlags(cmd)
	o.backend.addFlags(cmd)
}

// resolve loads the config file and environment, then lets explicitly set
// flags win. Unset flags take their value from the config.
func (o *serverOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if flags.Changed("cache-size") {
		cfg.Cache.MaxSize = o.cacheSize
	}
	if flags.Changed("cache-ttl") {
		cfg.Cache.TTL = o.cacheTTL
	}
	if flags.Changed("no-metrics") {
		cfg.Metrics.Enabled = !o.noMetrics
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}

	o.limiter.applyConfigIfUnset(cmd, cfg.Limiter.Config)
	cfg.Limiter.Config = o.limiter.toConfig()

	o.backend.applyConfigIfUnset(cmd, cfg.Limiter.Backend, cfg.Redis)
	if err := o.backend.normalize(); err != nil {
		return cfg, err
	}
	cfg.Limiter.Backend = o.backend.backend
	cfg.Redis = o.backend.toRedisConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newServerCmd() *cobra.Command {
	var o serverOptions

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the Spigot HTTP server with rate limiting and caching",
		Long: `Starts an HTTP server that rate limits callers per key and caches
responses with a bounded TTL cache.

Settings come from defaults, then --config, then SPIGOT_* environment
variables, then explicitly set flags.

Endpoints:
  GET    /                   Server info and current time
  GET    /health             Health check
  GET    /api/check          Check rate limit using client IP
  GET    /api/check/:key     Check rate limit for a specific key
  GET    /api/stream/:key    Stream a completion as server-sent events
  GET    /api/cache          Cache statistics
  DELETE /api/cache          Clear the cache
  GET    /api/cache/:key     Read a cached response
  PUT    /api/cache/:key     Store a JSON response
  DELETE /api/cache/:key     Invalidate one entry
  GET    /metrics            Prometheus metrics
  WS     /ws                 WebSocket feed of decisions (?key= to filter)`,
		Example: `  spigot server
  spigot server --config spigot.yaml
  spigot server --addr :9090 --algorithm sliding_window --rate 100 --window 1m
  spigot server --backend redis --redis-host localhost:6379
  spigot server --record traffic.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, o.recordFile)
		},
	}

	o.addFlags(cmd)
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, recordFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	slog.SetDefault(log)

	clk := clock.NewRealClock()
	col := metrics.NewCollector(metrics.Config{Namespace: cfg.Metrics.Namespace}, prometheus.NewRegistry())

	lo := limiterOptions{
		algorithm: string(cfg.Limiter.Algorithm),
		rate:      cfg.Limiter.Rate,
		window:    cfg.Limiter.Window,
		burst:     cfg.Limiter.Burst,
	}
	bo := backendFromConfig(cfg.Limiter.Backend, cfg.Redis)

	lim, limCloser, err := bo.buildLimiter(ctx, lo, clk,
		limiter.WithObserver(col),
		limiter.WithName("http"),
		limiter.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("creating limiter: %w", err)
	}
	defer limCloser.Close()

	respCache, err := cache.New[json.RawMessage](cfg.Cache.MaxSize, cfg.Cache.TTL,
		cache.WithClock(clk),
		cache.WithObserver(col),
		cache.WithName(cfg.Cache.Name),
	)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}

	hub := server.NewHub(log)
	defer hub.Close()

	opts := server.Options{
		Hub:        hub,
		Cache:      respCache,
		Logger:     log,
		Middleware: middleware.NewManager(middleware.Logging(log)),
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = col.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}
	if recordFile != "" {
		opts.Recorder = recorder.New(nil)
	}

	srv := server.New(cfg.Server.Addr, lim, clk, opts)
	log.Info("spigot configured",
		"addr", cfg.Server.Addr,
		"algorithm", cfg.Limiter.Algorithm,
		"backend", cfg.Limiter.Backend,
		"rate", cfg.Limiter.Rate,
		"window", cfg.Limiter.Window,
		"cache_size", cfg.Cache.MaxSize,
		"cache_ttl", cfg.Cache.TTL,
	)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		if opts.Recorder != nil {
			exportRecords(log, opts.Recorder, recordFile)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func exportRecords(log *slog.Logger, rec *recorder.Recorder, path string) {
	log.Info("exporting records", "count", rec.Len(), "file", path)
	if err := rec.ExportFile(path); err != nil {
		log.Error("error exporting records", "error", err)
	}
}
