package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	identity "github.com/leadflow/leadflow/internal/core/identity/config"
	"github.com/leadflow/leadflow/internal/core/leads"
	storage "github.com/leadflow/leadflow/internal/core/storage/config"
	api "github.com/leadflow/leadflow/internal/gateway/config"
	server "github.com/leadflow/leadflow/internal/server"
	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is where config.yml, config.local.yml and the rules file live.
const DefaultConfigDir = "config"

// Config holds the application configuration
type Config struct {
	Server  server.Config     `yaml:"server"`
	Gateway api.GatewayConfig `yaml:"gateway"`
	Leads   leads.Config      `yaml:"leads"`
	Events  EventsConfig      `yaml:"events"`
	Logging LoggingConfig     `yaml:"logging"`

	// Components
	Storage  storage.Config  `yaml:"storage"`
	Identity identity.Config `yaml:"identity"`
}

// Default returns the built-in configuration before any file is applied.
func Default() *Config {
	return &Config{
		Server:   server.DefaultConfig(),
		Gateway:  api.DefaultGatewayConfig(),
		Leads:    leads.DefaultConfig(),
		Events:   DefaultEventsConfig(),
		Logging:  DefaultLoggingConfig(),
		Storage:  storage.DefaultConfig(),
		Identity: identity.DefaultConfig(),
	}
}

// LoadConfig loads configuration from configDir and the environment.
// Order: defaults -> config.yml -> config.local.yml -> ApplyDefaults ->
// ApplyEnvOverrides -> ResolvePaths -> Validate.
func LoadConfig(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}

	// Defaults first so YAML can override them, including bool fields.
	cfg := Default()

	if err := loadFile(filepath.Join(configDir, "config.yml"), cfg); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(configDir, "config.local.yml"), cfg); err != nil {
		return nil, err
	}

	if err := ApplyServiceConfigs(configDir,
		&cfg.Server,
		&cfg.Gateway,
		&cfg.Leads,
		&cfg.Events,
		&cfg.Logging,
		&cfg.Storage,
		&cfg.Identity,
	); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE files into the process environment without
// replacing variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Debug("Loaded environment file", "path", p)
	}
	return nil
}

// loadFile merges a YAML file into cfg. A missing file is not an error.
func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	return nil
}
