// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, file and environment layering and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "API_KEY", "VOICELINK_API_KEY", "VOICELINK_VOICE", "VOICELINK_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "Kore", cfg.Voice)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.NotEmpty(t, cfg.SystemInstruction)
	assert.False(t, cfg.UseRelay())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "voicelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("voice: Puck\nlog_level: debug\nrelay: relay.local:8927\nretry_delay: 500ms\n"), 0644))

	t.Setenv("GEMINI_API_KEY", "from-gemini-env")
	t.Setenv("VOICELINK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-gemini-env", cfg.APIKey)
	assert.Equal(t, "Puck", cfg.Voice)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.UseRelay())
}

func TestPrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("VOICELINK_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "generic")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.APIKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("VOICELINK_LOG_LEVEL", "loud")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
