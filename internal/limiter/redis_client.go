package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPoolSize    = 20
	defaultRedisMaxRetries  = 3
	defaultRedisDialTimeout = 5 * time.Second
)

// RedisConfig describes how to reach the Redis server holding shared windows.
type RedisConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	Password     string        `json:"password,omitempty" yaml:"password,omitempty"`
	DB           int           `json:"db" yaml:"db"`
	Cluster      bool          `json:"cluster" yaml:"cluster"`
	ClusterNodes []string      `json:"cluster_nodes,omitempty" yaml:"cluster_nodes,omitempty"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// NewRedisClient builds a client from cfg and pings it, retrying with
// exponential backoff up to cfg.MaxRetries times.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	conf, err := normalizeRedisConfig(cfg)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	if conf.Cluster {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       conf.ClusterNodes,
			Password:    conf.Password,
			PoolSize:    conf.PoolSize,
			MaxRetries:  conf.MaxRetries,
			DialTimeout: conf.DialTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:        conf.Host + ":" + strconv.Itoa(conf.Port),
			Password:    conf.Password,
			DB:          conf.DB,
			PoolSize:    conf.PoolSize,
			MaxRetries:  conf.MaxRetries,
			DialTimeout: conf.DialTimeout,
		})
	}

	if err := pingWithRetry(ctx, client, conf.MaxRetries); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func normalizeRedisConfig(cfg RedisConfig) (RedisConfig, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultRedisPoolSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRedisMaxRetries
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultRedisDialTimeout
	}

	if cfg.Cluster {
		if len(cfg.ClusterNodes) == 0 {
			return cfg, fmt.Errorf("%w: cluster_nodes is required when cluster=true", ErrInvalidConfig)
		}
		return cfg, nil
	}
	if cfg.Host == "" {
		return cfg, fmt.Errorf("%w: host is required when cluster=false", ErrInvalidConfig)
	}
	if cfg.Port <= 0 {
		return cfg, fmt.Errorf("%w: port must be positive when cluster=false, got %d", ErrInvalidConfig, cfg.Port)
	}
	return cfg, nil
}

func pingWithRetry(ctx context.Context, client redis.UniversalClient, maxRetries int) error {
	attempts := maxRetries + 1
	backoff := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("ping failed with unknown error")
	}
	return lastErr
}
