package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t, "DATABASE_URL")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	clearEnv(t, "PORT", "WORKER_POOL_SIZE", "RETRY_MAX_ATTEMPTS", "RETRY_BASE_DELAY", "FALLBACK_TO_LOCAL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.True(t, cfg.FallbackToLocal)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("USE_REMOTE_CREWS", "true")
	t.Setenv("RETRY_BASE_DELAY", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	assert.True(t, cfg.UseRemoteCrews)
	assert.Equal(t, 2*time.Second, cfg.RetryBaseDelay)
}

func TestEnvIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")
	assert.Equal(t, 4, envInt("WORKER_POOL_SIZE", 4))
}

func TestEnvBoolFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("USE_REMOTE_CREWS", "not-a-bool")
	assert.Equal(t, false, envBool("USE_REMOTE_CREWS", false))
}
