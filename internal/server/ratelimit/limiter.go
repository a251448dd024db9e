// Package ratelimit provides per-client request limiting for the HTTP server.
package ratelimit

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Limiter defines the interface for rate limiting implementations.
type Limiter interface {
	// Allow reports whether a request for key is within its budget.
	Allow(ctx context.Context, key string) bool

	// Reset clears the counter for key.
	Reset(ctx context.Context, key string)
}

// Stoppable extends Limiter with a Stop method releasing background resources.
type Stoppable interface {
	Limiter
	Stop()
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the configuration for rate limiting.
type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`

	// Stricter budget for /api/auth routes
	AuthRequests int           `yaml:"auth_requests"`
	AuthWindow   time.Duration `yaml:"auth_window"`

	// Backend is "memory" or "redis"
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultConfig returns the default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Requests:     300,
		Window:       time.Minute,
		AuthRequests: 20,
		AuthWindow:   time.Minute,
		Backend:      BackendMemory,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "leadflow:ratelimit",
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Requests == 0 {
		c.Requests = d.Requests
	}
	if c.Window == 0 {
		c.Window = d.Window
	}
	if c.AuthRequests == 0 {
		c.AuthRequests = d.AuthRequests
	}
	if c.AuthWindow == 0 {
		c.AuthWindow = c.Window
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = d.Redis.KeyPrefix
	}
}

// ApplyEnvOverrides switches to the Redis backend when REDIS_ADDR is set.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Backend = BackendRedis
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Requests <= 0 || c.AuthRequests <= 0 {
		return fmt.Errorf("ratelimit: requests must be positive")
	}
	if c.Window <= 0 || c.AuthWindow <= 0 {
		return fmt.Errorf("ratelimit: window must be positive")
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("ratelimit: unknown backend %q", c.Backend)
	}
	return nil
}

// New builds the general and auth limiters for cfg. Both are nil when
// limiting is disabled.
func New(cfg Config) (general, auth Limiter) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Backend == BackendRedis {
		client := NewRedisClient(cfg.Redis)
		general = NewRedisLimiter(client, cfg.Redis.KeyPrefix+":api", cfg.Requests, cfg.Window, true)
		auth = NewRedisLimiter(client, cfg.Redis.KeyPrefix+":auth", cfg.AuthRequests, cfg.AuthWindow, false)
		return general, auth
	}
	general = NewMemoryLimiter(cfg.Requests, cfg.Window)
	auth = NewMemoryLimiter(cfg.AuthRequests, cfg.AuthWindow)
	return general, auth
}
