package authn

import (
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/leadflow/leadflow/internal/core/identity/config"
	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func sharedKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = GeneratePrivateKey()
		require.NoError(t, err)
	})
	return testKey
}

func testConfig() config.AuthNConfig {
	cfg := config.DefaultConfig().AuthN
	cfg.LockoutThreshold = 3
	return cfg
}

func setupService(t *testing.T) (*AuthService, *MockStorage) {
	t.Helper()
	store := new(MockStorage)
	cfg := testConfig()
	ts := newTokenServiceWithKey(sharedKey(t), cfg.AccessTokenTTL)
	return newAuthService(cfg, store, store, ts), store
}

func hashed(t *testing.T, password string) (string, string) {
	t.Helper()
	h, algo, err := HashPassword(password)
	require.NoError(t, err)
	return h, algo
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
