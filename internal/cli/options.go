package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
)

const redisKeyPrefix = "http:"

// limiterOptions are the limiter flags shared by server, test and replay.
type limiterOptions struct {
	algorithm string
	rate      int
	window    time.Duration
	burst     int
}

func (o *limiterOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.algorithm, "algorithm", string(limiter.AlgorithmTokenBucket), "rate limiting algorithm (token_bucket, sliding_window, fixed_window)")
	cmd.Flags().IntVar(&o.rate, "rate", 10, "requests allowed per window")
	cmd.Flags().DurationVar(&o.window, "window", time.Minute, "rate limit window duration")
	cmd.Flags().IntVar(&o.burst, "burst", 0, "max burst size (token_bucket only, 0 = same as rate)")
}

func (o *limiterOptions) applyConfigIfUnset(cmd *cobra.Command, cfg limiter.Config) {
	if !cmd.Flags().Changed("algorithm") {
		o.algorithm = string(cfg.Algorithm)
	}
	if !cmd.Flags().Changed("rate") {
		o.rate = cfg.Rate
	}
	if !cmd.Flags().Changed("window") {
		o.window = cfg.Window
	}
	if !cmd.Flags().Changed("burst") {
		o.burst = cfg.Burst
	}
}

func (o *limiterOptions) toConfig() limiter.Config {
	return limiter.Config{
		Algorithm: limiter.Algorithm(o.algorithm),
		Rate:      o.rate,
		Window:    o.window,
		Burst:     o.burst,
	}
}

// createLimiter builds an in-process per-key limiter.
func createLimiter(o limiterOptions, clk clock.Clock, opts ...limiter.Option) (*limiter.Group, error) {
	return limiter.NewGroup(o.toConfig(), append([]limiter.Option{limiter.WithClock(clk)}, opts...)...)
}

// backendOptions select where limiter state lives.
type backendOptions struct {
	backend           string
	redisHost         string
	redisPort         int
	redisPassword     string
	redisDB           int
	redisCluster      bool
	redisClusterNodes []string
	redisPoolSize     int
	redisMaxRetries   int
	redisDialTimeout  time.Duration
}

func (o *backendOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "backend", config.BackendMemory, "limiter backend (memory, redis)")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", "localhost", "redis host (or host:port)")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", 6379, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().BoolVar(&o.redisCluster, "redis-cluster", false, "enable redis cluster mode")
	cmd.Flags().StringSliceVar(&o.redisClusterNodes, "redis-cluster-nodes", nil, "redis cluster nodes host:port list")
	cmd.Flags().IntVar(&o.redisPoolSize, "redis-pool-size", 20, "redis connection pool size")
	cmd.Flags().IntVar(&o.redisMaxRetries, "redis-max-retries", 3, "redis max retries")
	cmd.Flags().DurationVar(&o.redisDialTimeout, "redis-dial-timeout", 5*time.Second, "redis dial timeout")
}

func (o *backendOptions) applyConfigIfUnset(cmd *cobra.Command, backend string, cfg limiter.RedisConfig) {
	if !cmd.Flags().Changed("backend") {
		o.backend = backend
	}
	if !cmd.Flags().Changed("redis-host") {
		o.redisHost = cfg.Host
	}
	if !cmd.Flags().Changed("redis-port") {
		o.redisPort = cfg.Port
	}
	if !cmd.Flags().Changed("redis-password") {
		o.redisPassword = cfg.Password
	}
	if !cmd.Flags().Changed("redis-db") {
		o.redisDB = cfg.DB
	}
	if !cmd.Flags().Changed("redis-cluster") {
		o.redisCluster = cfg.Cluster
	}
	if !cmd.Flags().Changed("redis-cluster-nodes") {
		o.redisClusterNodes = cfg.ClusterNodes
	}
	if !cmd.Flags().Changed("redis-pool-size") {
		o.redisPoolSize = cfg.PoolSize
	}
	if !cmd.Flags().Changed("redis-max-retries") {
		o.redisMaxRetries = cfg.MaxRetries
	}
	if !cmd.Flags().Changed("redis-dial-timeout") {
		o.redisDialTimeout = cfg.DialTimeout
	}
}

func backendFromConfig(backend string, cfg limiter.RedisConfig) backendOptions {
	return backendOptions{
		backend:           backend,
		redisHost:         cfg.Host,
		redisPort:         cfg.Port,
		redisPassword:     cfg.Password,
		redisDB:           cfg.DB,
		redisCluster:      cfg.Cluster,
		redisClusterNodes: cfg.ClusterNodes,
		redisPoolSize:     cfg.PoolSize,
		redisMaxRetries:   cfg.MaxRetries,
		redisDialTimeout:  cfg.DialTimeout,
	}
}

func (o *backendOptions) normalize() error {
	switch o.backend {
	case config.BackendMemory, config.BackendRedis:
	default:
		return fmt.Errorf("unknown backend %q, must be memory or redis", o.backend)
	}
	if o.redisCluster {
		return nil
	}

	host, port, err := normalizeRedisHostPort(o.redisHost, o.redisPort)
	if err != nil {
		return err
	}
	o.redisHost = host
	o.redisPort = port
	return nil
}

func (o *backendOptions) toRedisConfig() limiter.RedisConfig {
	return limiter.RedisConfig{
		Host:         o.redisHost,
		Port:         o.redisPort,
		Password:     o.redisPassword,
		DB:           o.redisDB,
		Cluster:      o.redisCluster,
		ClusterNodes: append([]string(nil), o.redisClusterNodes...),
		PoolSize:     o.redisPoolSize,
		MaxRetries:   o.redisMaxRetries,
		DialTimeout:  o.redisDialTimeout,
	}
}

// buildLimiter returns the per-key limiter for the selected backend. The
// closer releases the redis client and is a no-op for memory.
func (o *backendOptions) buildLimiter(ctx context.Context, lo limiterOptions, clk clock.Clock, opts ...limiter.Option) (*limiter.Group, io.Closer, error) {
	if o.backend != config.BackendRedis {
		g, err := createLimiter(lo, clk, opts...)
		return g, nopCloser{}, err
	}

	client, err := limiter.NewRedisClient(ctx, o.toRedisConfig())
	if err != nil {
		return nil, nil, err
	}
	g, err := limiter.NewRedisGroup(client, redisKeyPrefix, lo.toConfig(), opts...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return g, client, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func normalizeRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}
