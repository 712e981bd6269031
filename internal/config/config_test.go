package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		if had {
			t.Cleanup(func() { os.Setenv(k, orig) })
		}
	}
}

func TestLoadDefaultsInLocalEnvironment(t *testing.T) {
	clearEnv(t, "DATABASE_URL", "PORT", "ENVIRONMENT")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ENVIRONMENT", "local")
	t.Cleanup(func() { os.Unsetenv("JWT_SECRET") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.DocumentGracePeriod)
	assert.True(t, cfg.IsLocal())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	clearEnv(t, "JWT_SECRET")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRequiresDatabaseURLOutsideLocal(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ENVIRONMENT", "production")
	clearEnv(t, "DATABASE_URL")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("ENVIRONMENT")
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("PORT", "not-a-port")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("PORT")
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}
