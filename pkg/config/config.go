package config

import internalconfig "github.com/SmitUplenchwar2687/Spigot/internal/config"

const (
	BackendMemory = internalconfig.BackendMemory
	BackendRedis  = internalconfig.BackendRedis
)

// Config is the top-level configuration for a Spigot process.
type Config = internalconfig.Config

type (
	ServerConfig  = internalconfig.ServerConfig
	CacheConfig   = internalconfig.CacheConfig
	LimiterConfig = internalconfig.LimiterConfig
	LoggingConfig = internalconfig.LoggingConfig
	MetricsConfig = internalconfig.MetricsConfig
)

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// Load merges defaults, the file at path (if any) and SPIGOT_* variables,
// then validates the result.
func Load(path string) (Config, error) {
	return internalconfig.Load(path)
}

// LoadFile reads a YAML or JSON config file and merges it with defaults.
func LoadFile(path string) (Config, error) {
	return internalconfig.LoadFile(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
