package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type GatewayConfig struct {
	// RequestTimeout bounds every REST handler
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	MaxBodySize    int64          `yaml:"max_body_size"`
	Realtime       RealtimeConfig `yaml:"realtime"`
}

type RealtimeConfig struct {
	Enabled        bool          `yaml:"enabled"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	AllowDevOrigin bool          `yaml:"allow_dev_origin"`
	SendBuffer     int           `yaml:"send_buffer"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RequestTimeout: 30 * time.Second,
		MaxBodySize:    1 << 20,
		Realtime: RealtimeConfig{
			Enabled:        true,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			AllowDevOrigin: true,
			SendBuffer:     64,
			PingInterval:   54 * time.Second,
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (g *GatewayConfig) ApplyDefaults() {
	defaults := DefaultGatewayConfig()
	if g.RequestTimeout == 0 {
		g.RequestTimeout = defaults.RequestTimeout
	}
	if g.MaxBodySize == 0 {
		g.MaxBodySize = defaults.MaxBodySize
	}
	if len(g.Realtime.AllowedOrigins) == 0 {
		g.Realtime.AllowedOrigins = defaults.Realtime.AllowedOrigins
	}
	if g.Realtime.SendBuffer == 0 {
		g.Realtime.SendBuffer = defaults.Realtime.SendBuffer
	}
	if g.Realtime.PingInterval == 0 {
		g.Realtime.PingInterval = defaults.Realtime.PingInterval
	}
}

// ApplyEnvOverrides applies environment variable overrides. The realtime
// origin list follows CORS_ORIGINS so browsers allowed by CORS can stream.
func (g *GatewayConfig) ApplyEnvOverrides() {
	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		g.Realtime.AllowedOrigins = origins
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in gateway config.
func (g *GatewayConfig) ResolvePaths(_ string) { _ = g }

// Validate returns an error if the configuration is invalid.
func (g *GatewayConfig) Validate() error {
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("gateway.request_timeout must be positive")
	}
	if g.MaxBodySize <= 0 {
		return fmt.Errorf("gateway.max_body_size must be positive")
	}
	if g.Realtime.SendBuffer < 0 {
		return fmt.Errorf("gateway.realtime.send_buffer must not be negative")
	}
	return nil
}
