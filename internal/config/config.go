// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/Sternrassler/shop-api/pkg/cache"
	"github.com/Sternrassler/shop-api/pkg/logging"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"shop.db"`

	Cache CacheConfig
}

// CacheConfig holds response cache configuration.
type CacheConfig struct {
	Backend          string `env:"CACHE_BACKEND" envDefault:"memory"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	MaxContentBytes  int64  `env:"CACHE_MAX_CONTENT_BYTES" envDefault:"20971520"`
	Hash             string `env:"CACHE_HASH" envDefault:"md5"`
	InvalidateOnPost bool   `env:"CACHE_INVALIDATE_ON_POST" envDefault:"true"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case string(logging.LevelDebug), string(logging.LevelInfo), string(logging.LevelWarn), "warning", string(logging.LevelError):
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q (got %q)", BackendMemory, BackendRedis, c.Cache.Backend)
	}
	if c.Cache.MaxContentBytes <= 0 {
		return fmt.Errorf("CACHE_MAX_CONTENT_BYTES must be > 0 (got %d)", c.Cache.MaxContentBytes)
	}
	if _, err := cache.NewHasher(c.Cache.Hash); err != nil {
		return fmt.Errorf("CACHE_HASH: %w", err)
	}
	return nil
}

// UnsafeMethods returns the methods that invalidate the response cache.
func (c *Config) UnsafeMethods() []string {
	methods := []string{http.MethodPut, http.MethodDelete}
	if c.Cache.InvalidateOnPost {
		methods = append(methods, http.MethodPost, http.MethodPatch)
	}
	return methods
}

// LoggingConfig maps the log settings onto logging.Config.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	lc.Pretty = c.LogPretty
	return lc
}
