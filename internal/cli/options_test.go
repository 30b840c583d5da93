package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/clock"
	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
)

func TestNormalizeRedisHostPort(t *testing.T) {
	host, port, err := normalizeRedisHostPort("localhost:6380", 6379)
	if err != nil {
		t.Fatalf("normalizeRedisHostPort() error = %v", err)
	}
	if host != "localhost" || port != 6380 {
		t.Fatalf("normalizeRedisHostPort() = %s:%d, want localhost:6380", host, port)
	}

	host, port, err = normalizeRedisHostPort("redis.internal", 6379)
	if err != nil {
		t.Fatalf("normalizeRedisHostPort() error = %v", err)
	}
	if host != "redis.internal" || port != 6379 {
		t.Fatalf("normalizeRedisHostPort() = %s:%d, want redis.internal:6379", host, port)
	}
}

func TestNormalizeRedisHostPort_Invalid(t *testing.T) {
	if _, _, err := normalizeRedisHostPort("", 6379); err == nil {
		t.Fatal("expected error for empty host")
	}
	if _, _, err := normalizeRedisHostPort("localhost", 0); err == nil {
		t.Fatal("expected error for non-positive port")
	}
	if _, _, err := normalizeRedisHostPort("localhost:abc", 6379); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestBackendOptions_NormalizeUnknownBackend(t *testing.T) {
	o := backendOptions{backend: "crdt", redisHost: "localhost", redisPort: 6379}
	if err := o.normalize(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestBuildLimiter_Memory(t *testing.T) {
	vc := clock.NewVirtualClock(time.Now())
	bo := backendOptions{backend: config.BackendMemory}
	lo := limiterOptions{algorithm: "fixed_window", rate: 2, window: time.Minute}

	lim, closer, err := bo.buildLimiter(context.Background(), lo, vc)
	if err != nil {
		t.Fatalf("buildLimiter() error = %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	lim.Allow(ctx, "user-1")
	lim.Allow(ctx, "user-1")
	if lim.Allow(ctx, "user-1").Allowed {
		t.Fatal("third request should be denied")
	}
	if !lim.Allow(ctx, "user-2").Allowed {
		t.Fatal("other keys are independent")
	}
}

func TestBuildLimiter_RedisUnreachable(t *testing.T) {
	bo := backendOptions{
		backend:          config.BackendRedis,
		redisHost:        "127.0.0.1",
		redisPort:        1,
		redisMaxRetries:  1,
		redisDialTimeout: 50 * time.Millisecond,
	}
	lo := limiterOptions{algorithm: "sliding_window", rate: 2, window: time.Minute}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := bo.buildLimiter(ctx, lo, clock.NewRealClock()); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}

func newTestServerCmd(t *testing.T, args ...string) (*cobra.Command, *serverOptions) {
	t.Helper()
	var o serverOptions
	cmd := &cobra.Command{Use: "server"}
	o.addFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cmd, &o
}

func TestServerOptions_ResolveDefaults(t *testing.T) {
	cmd, o := newTestServerCmd(t)
	cfg, err := o.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	want := config.Default()
	if cfg.Server.Addr != want.Server.Addr {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, want.Server.Addr)
	}
	if cfg.Limiter.Config != want.Limiter.Config {
		t.Errorf("limiter = %+v, want %+v", cfg.Limiter.Config, want.Limiter.Config)
	}
	if cfg.Limiter.Backend != config.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Limiter.Backend)
	}
}

func TestServerOptions_FlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spigot.yaml")
	data := []byte(`server:
  addr: ":7000"
cache:
  max_size: 50
limiter:
  algorithm: sliding_window
  rate: 40
  window: 30s
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cmd, o := newTestServerCmd(t, "--config", path, "--rate", "7", "--cache-ttl", "10s")
	cfg, err := o.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}

	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000 from file", cfg.Server.Addr)
	}
	if cfg.Limiter.Algorithm != limiter.AlgorithmSlidingWindow {
		t.Errorf("algorithm = %q, want sliding_window from file", cfg.Limiter.Algorithm)
	}
	if cfg.Limiter.Window != 30*time.Second {
		t.Errorf("window = %s, want 30s from file", cfg.Limiter.Window)
	}
	if cfg.Limiter.Rate != 7 {
		t.Errorf("rate = %d, want 7 from flag", cfg.Limiter.Rate)
	}
	if cfg.Cache.MaxSize != 50 {
		t.Errorf("cache size = %d, want 50 from file", cfg.Cache.MaxSize)
	}
	if cfg.Cache.TTL != 10*time.Second {
		t.Errorf("cache ttl = %s, want 10s from flag", cfg.Cache.TTL)
	}
}

func TestServerOptions_RedisHostWithPort(t *testing.T) {
	cmd, o := newTestServerCmd(t, "--backend", "redis", "--redis-host", "cache.local:6390")
	cfg, err := o.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if cfg.Redis.Host != "cache.local" || cfg.Redis.Port != 6390 {
		t.Fatalf("redis = %s:%d, want cache.local:6390", cfg.Redis.Host, cfg.Redis.Port)
	}
}

func TestServerOptions_RejectsInvalid(t *testing.T) {
	cmd, o := newTestServerCmd(t, "--cache-size", "0")
	if _, err := o.resolve(cmd); err == nil {
		t.Fatal("expected error for zero cache size")
	}

	cmd, o = newTestServerCmd(t, "--algorithm", "leaky_bucket")
	if _, err := o.resolve(cmd); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
