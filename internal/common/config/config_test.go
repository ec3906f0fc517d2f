package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "memory", cfg.RateLimit.Type)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30, cfg.RateLimit.WidgetMax)
	assert.Equal(t, 60, cfg.RateLimit.WebhookMax)
	assert.Equal(t, "/socket.io", cfg.WebSocket.Path)
	assert.Equal(t, 30*time.Second, cfg.Forwarder.Timeout)
}

func TestLoadResolvesEnvPlaceholders(t *testing.T) {
	t.Setenv("CHATFLOWUI_TEST_PORT", "8123")

	content := "server:\n  port: ${CHATFLOWUI_TEST_PORT:7861}\n  env: ${CHATFLOWUI_TEST_ENV:production}\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	// unset variable falls back to its default
	assert.Equal(t, "production", cfg.Server.Env)
	assert.True(t, cfg.Server.IsProduction())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 7861, cfg.Server.Port)
	assert.False(t, cfg.Server.IsProduction())
	assert.Equal(t, 100, cfg.RateLimit.APIMax)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.SweepInterval)
}
