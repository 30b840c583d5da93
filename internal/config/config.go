// Package config loads Spigot settings from defaults, an optional YAML or
// JSON file and SPIGOT_* environment variables, in that order.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/Spigot/internal/limiter"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the top-level configuration for a Spigot process.
type Config struct {
	Server  ServerConfig        `json:"server" yaml:"server"`
	Cache   CacheConfig         `json:"cache" yaml:"cache"`
	Limiter LimiterConfig       `json:"limiter" yaml:"limiter"`
	Redis   limiter.RedisConfig `json:"redis" yaml:"redis"`
	Logging LoggingConfig       `json:"logging" yaml:"logging"`
	Metrics MetricsConfig       `json:"metrics" yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// CacheConfig sizes the response cache.
type CacheConfig struct {
	Name    string        `json:"name" yaml:"name"`
	MaxSize int           `json:"max_size" yaml:"max_size"`
	TTL     time.Duration `json:"ttl" yaml:"ttl"`
}

// LimiterConfig selects an algorithm and where its state lives. The redis
// backend always runs a sliding window.
type LimiterConfig struct {
	limiter.Config `yaml:",inline"`
	Backend        string `json:"backend" yaml:"backend"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level    string `json:"level" yaml:"level"`
	Format   string `json:"format" yaml:"format"`
	Output   string `json:"output" yaml:"output"`
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Path      string `json:"path" yaml:"path"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Name:    "responses",
			MaxSize: 1000,
			TTL:     5 * time.Minute,
		},
		Limiter: LimiterConfig{
			Config: limiter.Config{
				Algorithm: limiter.AlgorithmTokenBucket,
				Rate:      10,
				Window:    time.Minute,
				Burst:     10,
			},
			Backend: BackendMemory,
		},
		Redis: limiter.RedisConfig{
			Host:        "localhost",
			Port:        6379,
			PoolSize:    20,
			MaxRetries:  3,
			DialTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "spigot",
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative, got %s", c.Server.ShutdownTimeout)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if err := c.Limiter.Validate(); err != nil {
		return err
	}
	switch c.Limiter.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Cluster {
			if len(c.Redis.ClusterNodes) == 0 {
				return errors.New("redis.cluster_nodes is required when redis.cluster=true")
			}
		} else if c.Redis.Host == "" || c.Redis.Port <= 0 {
			return fmt.Errorf("redis host and port are required for the redis backend, got %q:%d", c.Redis.Host, c.Redis.Port)
		}
	default:
		return fmt.Errorf("unknown limiter backend %q, must be one of: memory, redis", c.Limiter.Backend)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging.format %q, must be json or text", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.FilePath == "" {
			return errors.New("logging.file_path is required when logging.output=file")
		}
	default:
		return fmt.Errorf("unknown logging.output %q, must be stdout, stderr or file", c.Logging.Output)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}

// Load builds the effective config: defaults, then path if non-empty, then
// the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML or JSON config file and merges it with defaults.
// Fields not specified in the file retain their default values. Durations
// are strings such as "30s". Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// JSON is a subset of YAML, so one decoder serves both once the JSON is
	// known to be well formed.
	if strings.EqualFold(filepath.Ext(path), ".json") && !json.Valid(data) {
		return cfg, fmt.Errorf("parsing config file: invalid JSON in %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SPIGOT_* environment variables. Unset
// variables leave the field alone; malformed values are an error.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	str("SPIGOT_ADDR", &c.Server.Addr)
	dur("SPIGOT_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("SPIGOT_CACHE_NAME", &c.Cache.Name)
	num("SPIGOT_CACHE_MAX_SIZE", &c.Cache.MaxSize)
	dur("SPIGOT_CACHE_TTL", &c.Cache.TTL)

	if v := os.Getenv("SPIGOT_LIMITER_ALGORITHM"); v != "" {
		c.Limiter.Algorithm = limiter.Algorithm(v)
	}
	num("SPIGOT_LIMITER_RATE", &c.Limiter.Rate)
	dur("SPIGOT_LIMITER_WINDOW", &c.Limiter.Window)
	num("SPIGOT_LIMITER_BURST", &c.Limiter.Burst)
	str("SPIGOT_LIMITER_BACKEND", &c.Limiter.Backend)

	str("SPIGOT_REDIS_HOST", &c.Redis.Host)
	num("SPIGOT_REDIS_PORT", &c.Redis.Port)
	str("SPIGOT_REDIS_PASSWORD", &c.Redis.Password)
	num("SPIGOT_REDIS_DB", &c.Redis.DB)
	num("SPIGOT_REDIS_POOL_SIZE", &c.Redis.PoolSize)

	str("SPIGOT_LOG_LEVEL", &c.Logging.Level)
	str("SPIGOT_LOG_FORMAT", &c.Logging.Format)
	str("SPIGOT_LOG_OUTPUT", &c.Logging.Output)
	str("SPIGOT_LOG_FILE_PATH", &c.Logging.FilePath)

	boolean("SPIGOT_METRICS_ENABLED", &c.Metrics.Enabled)
	str("SPIGOT_METRICS_PATH", &c.Metrics.Path)

	return errors.Join(errs...)
}

const exampleYAML = `server:
  addr: ":8080"
  shutdown_timeout: 5s
cache:
  name: responses
  max_size: 1000
  ttl: 5m
limiter:
  algorithm: token_bucket
  rate: 10
  window: 1m
  burst: 10
  backend: memory
redis:
  host: localhost
  port: 6379
  db: 0
  pool_size: 20
  max_retries: 3
  dial_timeout: 5s
logging:
  level: info
  format: text
  output: stderr
metrics:
  enabled: true
  path: /metrics
  namespace: spigot
`

const exampleJSON = `{
  "server": {
    "addr": ":8080",
    "shutdown_timeout": "5s"
  },
  "cache": {
    "name": "responses",
    "max_size": 1000,
    "ttl": "5m"
  },
  "limiter": {
    "algorithm": "token_bucket",
    "rate": 10,
    "window": "1m",
    "burst": 10,
    "backend": "memory"
  },
  "redis": {
    "host": "localhost",
    "port": 6379,
    "db": 0,
    "pool_size": 20,
    "max_retries": 3,
    "dial_timeout": "5s"
  },
  "logging": {
    "level": "info",
    "format": "text",
    "output": "stderr"
  },
  "metrics": {
    "enabled": true,
    "path": "/metrics",
    "namespace": "spigot"
  }
}
`

// WriteExample writes an example config file to the given path, as JSON
// when the extension is .json and YAML otherwise.
func WriteExample(path string) error {
	example := exampleYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		example = exampleJSON
	}
	return os.WriteFile(path, []byte(example), 0o644)
}
