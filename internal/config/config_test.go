package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Assistant.MaxAttempts)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AIDESK_SERVER_ADDR", ":9999")
	t.Setenv("AIDESK_DATABASE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestEnvOnlySettings(t *testing.T) {
	// These keys default to empty, so they are only ever set through the
	// environment (or a config file).
	t.Setenv("AIDESK_AUTH_JWT_SECRET", "super-secret")
	t.Setenv("AIDESK_ASSISTANT_API_KEY", "sk-test")
	t.Setenv("AIDESK_REDIS_ADDR", "localhost:6379")
	t.Setenv("AIDESK_REDIS_PASSWORD", "hunter2")
	t.Setenv("AIDESK_REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-test", cfg.Assistant.APIKey)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestGetReturnsInstalled(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, Get())
}
