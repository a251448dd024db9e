package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockServiceConfig implements ServiceConfig for testing ApplyServiceConfigs
type mockServiceConfig struct {
	calls       []string
	baseDir     string
	validateErr error
}

func (m *mockServiceConfig) ApplyDefaults()     { m.calls = append(m.calls, "defaults") }
func (m *mockServiceConfig) ApplyEnvOverrides() { m.calls = append(m.calls, "env") }

func (m *mockServiceConfig) ResolvePaths(baseDir string) {
	m.calls = append(m.calls, "paths")
	m.baseDir = baseDir
}

func (m *mockServiceConfig) Validate() error {
	m.calls = append(m.calls, "validate")
	return m.validateErr
}

func TestApplyServiceConfigs_Order(t *testing.T) {
	a, b := &mockServiceConfig{}, &mockServiceConfig{}

	assert.NoError(t, ApplyServiceConfigs("/etc/leadflow", a, b))
	for _, m := range []*mockServiceConfig{a, b} {
		assert.Equal(t, []string{"defaults", "env", "paths", "validate"}, m.calls)
		assert.Equal(t, "/etc/leadflow", m.baseDir)
	}
}

func TestApplyServiceConfigs_StopsAtValidationError(t *testing.T) {
	bad := &mockServiceConfig{validateErr: errors.New("bad port")}
	next := &mockServiceConfig{}

	err := ApplyServiceConfigs("config", bad, next)
	assert.EqualError(t, err, "bad port")
	assert.Empty(t, next.calls)
}

func TestApplyServiceConfigs_EmptyList(t *testing.T) {
	assert.NoError(t, ApplyServiceConfigs("config"))
}
