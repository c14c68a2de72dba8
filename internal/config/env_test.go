package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "3100", env.HTTPPort)
	assert.Equal(t, "none", env.StorageEnv.Type)
	assert.Equal(t, "week", env.View)
	assert.True(t, env.Sync)
	assert.Empty(t, env.APIKey)

	loc, err := env.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("AGENTCAL_HTTP_PORT", "8080")
	t.Setenv("AGENTCAL_STORAGE_TYPE", "local")
	t.Setenv("AGENTCAL_BOARD_TIMEZONE", "Asia/Tokyo")
	t.Setenv("AGENTCAL_BOARD_SYNC", "false")
	t.Setenv("AGENTCAL_API_KEY", "secret")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", env.HTTPPort)
	assert.Equal(t, "local", StorageEnvFromEnv(env).Type)
	assert.False(t, BoardEnvFromEnv(env).Sync)
	assert.Equal(t, "secret", env.APIKey)

	loc, err := env.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestLoadEnv_BadTimezone(t *testing.T) {
	t.Setenv("AGENTCAL_BOARD_TIMEZONE", "Mars/Olympus")
	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e := &BaseEnv{LogLevel: tt.in}
			assert.Equal(t, tt.want, e.SlogLevel())
		})
	}

	var nilEnv *BaseEnv
	assert.Equal(t, slog.LevelDebug, nilEnv.SlogLevel())
}
