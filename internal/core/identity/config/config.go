package config

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	AuthN AuthNConfig `yaml:"authn"`
	AuthZ AuthZConfig `yaml:"authz"`
}

type AuthNConfig struct {
	AccessTokenTTL    time.Duration `yaml:"access_token_ttl"`
	PrivateKeyFile    string        `yaml:"private_key_file"`
	CookieName        string        `yaml:"cookie_name"`
	CookieSecure      bool          `yaml:"cookie_secure"`
	CookieSameSite    string        `yaml:"cookie_same_site"`
	MinPasswordLength int           `yaml:"min_password_length"`
	LockoutThreshold  int           `yaml:"lockout_threshold"`
	LockoutDuration   time.Duration `yaml:"lockout_duration"`
}

type AuthZConfig struct {
	// RulesFile is a YAML rule set; empty uses the built-in rules
	RulesFile string `yaml:"rules_file"`
}

func DefaultConfig() Config {
	return Config{
		AuthN: AuthNConfig{
			AccessTokenTTL:    7 * 24 * time.Hour,
			PrivateKeyFile:    "keys/auth_private.pem",
			CookieName:        "token",
			CookieSameSite:    "lax",
			MinPasswordLength: 6,
			LockoutThreshold:  10,
			LockoutDuration:   5 * time.Minute,
		},
		AuthZ: AuthZConfig{
			RulesFile: "security.yaml",
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.AuthN.AccessTokenTTL == 0 {
		c.AuthN.AccessTokenTTL = defaults.AuthN.AccessTokenTTL
	}
	if c.AuthN.PrivateKeyFile == "" {
		c.AuthN.PrivateKeyFile = defaults.AuthN.PrivateKeyFile
	}
	if c.AuthN.CookieName == "" {
		c.AuthN.CookieName = defaults.AuthN.CookieName
	}
	if c.AuthN.CookieSameSite == "" {
		c.AuthN.CookieSameSite = defaults.AuthN.CookieSameSite
	}
	if c.AuthN.MinPasswordLength == 0 {
		c.AuthN.MinPasswordLength = defaults.AuthN.MinPasswordLength
	}
	if c.AuthN.LockoutThreshold == 0 {
		c.AuthN.LockoutThreshold = defaults.AuthN.LockoutThreshold
	}
	if c.AuthN.LockoutDuration == 0 {
		c.AuthN.LockoutDuration = defaults.AuthN.LockoutDuration
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("AUTH_PRIVATE_KEY_FILE"); v != "" {
		c.AuthN.PrivateKeyFile = v
	}
	if v := os.Getenv("AUTH_COOKIE_SECURE"); v != "" {
		c.AuthN.CookieSecure = v == "true" || v == "1"
	}
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AuthN.AccessTokenTTL = d
		}
	}
}

// ResolvePaths resolves relative paths against configDir.
func (c *Config) ResolvePaths(configDir string) {
	if c.AuthZ.RulesFile != "" && !filepath.IsAbs(c.AuthZ.RulesFile) {
		c.AuthZ.RulesFile = filepath.Join(configDir, c.AuthZ.RulesFile)
	}
	if c.AuthN.PrivateKeyFile != "" && !filepath.IsAbs(c.AuthN.PrivateKeyFile) {
		c.AuthN.PrivateKeyFile = filepath.Join(configDir, c.AuthN.PrivateKeyFile)
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.AuthN.PrivateKeyFile == "" {
		return errors.New("identity.authn.private_key_file is required")
	}
	if c.AuthN.AccessTokenTTL <= 0 {
		return errors.New("identity.authn.access_token_ttl must be positive")
	}
	if c.AuthN.MinPasswordLength < 1 {
		return errors.New("identity.authn.min_password_length must be at least 1")
	}
	if _, ok := sameSiteModes[strings.ToLower(c.AuthN.CookieSameSite)]; !ok {
		return errors.New("identity.authn.cookie_same_site must be one of lax, strict, none")
	}
	return nil
}

var sameSiteModes = map[string]http.SameSite{
	"lax":    http.SameSiteLaxMode,
	"strict": http.SameSiteStrictMode,
	"none":   http.SameSiteNoneMode,
}

// SameSite maps the configured mode to its http value, defaulting to Lax.
func (c AuthNConfig) SameSite() http.SameSite {
	if m, ok := sameSiteModes[strings.ToLower(c.CookieSameSite)]; ok {
		return m
	}
	return http.SameSiteLaxMode
}
