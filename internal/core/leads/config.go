package leads

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config contains lead service configuration
type Config struct {
	// DefaultLimit is the page size when none (or an invalid one) is requested
	DefaultLimit int `yaml:"default_limit"`
	// MaxLimit caps the requested page size
	MaxLimit int `yaml:"max_limit"`
	// ExportMaxRows caps the number of rows written by an export
	ExportMaxRows int `yaml:"export_max_rows"`
	// FilterTimezone is the IANA zone used for zone-less filter dates
	FilterTimezone string `yaml:"filter_timezone"`
	// PublishTimeout bounds how long a lead event publish may take
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// PageLimitCeiling is the largest page size any deployment may configure.
const PageLimitCeiling = 100

// DefaultConfig returns the default lead service configuration
func DefaultConfig() Config {
	return Config{
		DefaultLimit:   20,
		MaxLimit:       PageLimitCeiling,
		ExportMaxRows:  5000,
		FilterTimezone: "UTC",
		PublishTimeout: 2 * time.Second,
	}
}

// ApplyDefaults fills zero values with defaults
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.ExportMaxRows <= 0 {
		c.ExportMaxRows = d.ExportMaxRows
	}
	if c.FilterTimezone == "" {
		c.FilterTimezone = d.FilterTimezone
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LEADS_EXPORT_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ExportMaxRows = n
		}
	}
	if v := os.Getenv("LEADS_FILTER_TIMEZONE"); v != "" {
		c.FilterTimezone = v
	}
}

func (c *Config) ResolvePaths(_ string) {}

// Validate checks limits and the filter time zone
func (c *Config) Validate() error {
	if c.MaxLimit > PageLimitCeiling {
		return fmt.Errorf("leads.max_limit (%d) exceeds %d", c.MaxLimit, PageLimitCeiling)
	}
	if c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("leads.default_limit (%d) exceeds leads.max_limit (%d)", c.DefaultLimit, c.MaxLimit)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("leads.filter_timezone: %w", err)
	}
	return nil
}

// Location loads the filter time zone
func (c *Config) Location() (*time.Location, error) {
	if c.FilterTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.FilterTimezone)
}
