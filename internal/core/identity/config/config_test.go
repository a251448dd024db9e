package config

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7*24*time.Hour, cfg.AuthN.AccessTokenTTL)
	assert.Equal(t, "keys/auth_private.pem", cfg.AuthN.PrivateKeyFile)
	assert.Equal(t, "token", cfg.AuthN.CookieName)
	assert.Equal(t, 6, cfg.AuthN.MinPasswordLength)
	assert.Equal(t, 10, cfg.AuthN.LockoutThreshold)
	assert.Equal(t, 5*time.Minute, cfg.AuthN.LockoutDuration)
	assert.Equal(t, "security.yaml", cfg.AuthZ.RulesFile)
}

func TestConfig_ApplyDefaults_PartialConfig(t *testing.T) {
	cfg := &Config{
		AuthN: AuthNConfig{
			AccessTokenTTL: time.Hour,
			CookieName:     "session",
		},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, time.Hour, cfg.AuthN.AccessTokenTTL)
	assert.Equal(t, "session", cfg.AuthN.CookieName)
	assert.Equal(t, "keys/auth_private.pem", cfg.AuthN.PrivateKeyFile)
	assert.Equal(t, 10, cfg.AuthN.LockoutThreshold)
	assert.Empty(t, cfg.AuthZ.RulesFile, "an empty rules file selects the built-in rules")
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_PRIVATE_KEY_FILE", "/run/secrets/key.pem")
	t.Setenv("AUTH_COOKIE_SECURE", "true")
	t.Setenv("AUTH_TOKEN_TTL", "12h")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "/run/secrets/key.pem", cfg.AuthN.PrivateKeyFile)
	assert.True(t, cfg.AuthN.CookieSecure)
	assert.Equal(t, 12*time.Hour, cfg.AuthN.AccessTokenTTL)
}

func TestConfig_ResolvePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolvePaths("base")

	assert.Equal(t, filepath.Join("base", "security.yaml"), cfg.AuthZ.RulesFile)
	assert.Equal(t, filepath.Join("base", "keys/auth_private.pem"), cfg.AuthN.PrivateKeyFile)

	cfg = DefaultConfig()
	cfg.AuthZ.RulesFile = "/absolute/rules.yaml"
	cfg.AuthN.PrivateKeyFile = ""
	cfg.ResolvePaths("config")
	assert.Equal(t, "/absolute/rules.yaml", cfg.AuthZ.RulesFile)
	assert.Equal(t, "", cfg.AuthN.PrivateKeyFile)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	empty := Config{}
	assert.ErrorContains(t, empty.Validate(), "identity.authn.private_key_file is required")

	cfg.AuthN.CookieSameSite = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestAuthNConfig_SameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, AuthNConfig{CookieSameSite: "Strict"}.SameSite())
	assert.Equal(t, http.SameSiteNoneMode, AuthNConfig{CookieSameSite: "none"}.SameSite())
	assert.Equal(t, http.SameSiteLaxMode, AuthNConfig{}.SameSite())
}
