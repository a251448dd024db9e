package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// EventsConfig selects where lead events are published. The in-process
// broker is always used for the live stream; NATS is added when URL is set.
type EventsConfig struct {
	Enabled      bool       `yaml:"enabled"`
	MemoryBuffer int        `yaml:"memory_buffer"`
	NATS         NATSConfig `yaml:"nats"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	StreamName    string        `yaml:"stream_name"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Storage       string        `yaml:"storage"` // memory or file
	RetryAttempts int           `yaml:"retry_attempts"`
	SetupTimeout  time.Duration `yaml:"setup_timeout"`
}

func DefaultEventsConfig() EventsConfig {
	return EventsConfig{
		Enabled:      true,
		MemoryBuffer: 256,
		NATS: NATSConfig{
			StreamName:    "LEADFLOW",
			SubjectPrefix: "leadflow",
			Storage:       "file",
			RetryAttempts: 2,
			SetupTimeout:  10 * time.Second,
		},
	}
}

func (c *EventsConfig) ApplyDefaults() {
	d := DefaultEventsConfig()
	if c.MemoryBuffer <= 0 {
		c.MemoryBuffer = d.MemoryBuffer
	}
	if c.NATS.StreamName == "" {
		c.NATS.StreamName = d.NATS.StreamName
	}
	if c.NATS.Storage == "" {
		c.NATS.Storage = d.NATS.Storage
	}
	if c.NATS.SetupTimeout <= 0 {
		c.NATS.SetupTimeout = d.NATS.SetupTimeout
	}
}

func (c *EventsConfig) ApplyEnvOverrides() {
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("EVENTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	}
}

func (c *EventsConfig) ResolvePaths(_ string) {}

func (c *EventsConfig) Validate() error {
	switch c.NATS.Storage {
	case "memory", "file":
	default:
		return errors.New("events.nats.storage must be memory or file")
	}
	if c.NATS.RetryAttempts < 0 {
		return errors.New("events.nats.retry_attempts cannot be negative")
	}
	return nil
}

// NATSEnabled reports whether events are also published to NATS.
func (c *EventsConfig) NATSEnabled() bool {
	return c.Enabled && c.NATS.URL != ""
}
