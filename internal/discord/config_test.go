package discord

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DISCORD_TOKEN":     "token",
		"SUBSONIC_URL":      "https://music.example.com",
		"SUBSONIC_USER":     "alice",
		"SUBSONIC_PASSWORD": "secret",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(env.Options{Environment: baseEnv()})
	require.NoError(t, err)

	assert.Equal(t, "S-", cfg.DefaultPrefix)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDev)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "harmony.db", cfg.Database)
	assert.Equal(t, "harmony-kv", cfg.BadgerPath)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 96, cfg.FFmpegBitrate)
	assert.Equal(t, 3, cfg.CompressionLevel)
	assert.InDelta(t, 2.0, cfg.CommandRate, 1e-9)
	assert.Equal(t, 5, cfg.CommandBurst)
}

func TestParseOverrides(t *testing.T) {
	e := baseEnv()
	e["DEFAULT_PREFIX"] = "!"
	e["STORE_BACKEND"] = "badger"
	e["LOG_DEV"] = "true"
	e["FFMPEG_BITRATE"] = "128"
	e["INVITE_URL"] = "https://discord.com/oauth2/authorize?client_id=1"

	cfg, err := parse(env.Options{Environment: e})
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.DefaultPrefix)
	assert.Equal(t, BackendBadger, cfg.StoreBackend)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, 128, cfg.FFmpegBitrate)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"missing token", "DISCORD_TOKEN", "", "DISCORD_TOKEN"},
		{"long prefix", "DEFAULT_PREFIX", "!!!!", "DEFAULT_PREFIX"},
		{"unknown backend", "STORE_BACKEND", "postgres", "STORE_BACKEND"},
		{"bad level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"compression", "COMPRESSION_LEVEL", "11", "COMPRESSION_LEVEL"},
		{"invite not a url", "INVITE_URL", "nope", "INVITE_URL"},
		{"scheme", "SUBSONIC_URL", "ftp://music.example.com", "scheme"},
		{"relative url", "SUBSONIC_URL", "music.example.com", "SUBSONIC_URL"},
		{"not a number", "FFMPEG_BITRATE", "fast", "parsing environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := baseEnv()
			e[tt.key] = tt.value
			_, err := parse(env.Options{Environment: e})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	vars := baseEnv()
	vars["DEFAULT_PREFIX"] = "?"
	for k := range vars {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	path := filepath.Join(t.TempDir(), "test.env")
	content := ""
	for k, v := range vars {
		content += k + "=" + v + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.DefaultPrefix)
	assert.Equal(t, "alice", cfg.SubsonicUser)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", true)
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger("loud", false)
	assert.Error(t, err)
}
