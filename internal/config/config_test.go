package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/chatbridge/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_TOKEN", "")
	t.Setenv("CHAT_TOKEN", "123:abc")
	t.Setenv("CHAT_BROADCAST_CHANNEL", "@groundschool")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "StarfireAviation", cfg.Organization)
	assert.Equal(t, "TELEGRAM", cfg.ClientID)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "GROUNDSCHOOL", cfg.SupportedEventType)
	assert.Equal(t, 4096, cfg.MaxReplyLength)
	assert.Equal(t, "https://messages.starfireaviation.com", cfg.MessagesBaseURL)
	assert.Empty(t, cfg.APIToken)
}

func TestLoad_RequiredKeys(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		setRequired(t)
		t.Setenv("CHAT_TOKEN", "")
		_, err := config.Load()
		assert.ErrorContains(t, err, "CHAT_TOKEN")
	})

	t.Run("missing broadcast channel", func(t *testing.T) {
		setRequired(t)
		t.Setenv("CHAT_BROADCAST_CHANNEL", "")
		_, err := config.Load()
		assert.ErrorContains(t, err, "CHAT_BROADCAST_CHANNEL")
	})
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "bridge.yaml")
	yml := []byte("ENABLED: false\nPOLL_INTERVAL: 5s\nchat_rate_limit: 3\nORGANIZATION: FromFile\nMESSAGES_BASE_URL: http://messages.local/\n")
	require.NoError(t, os.WriteFile(path, yml, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ORGANIZATION", "FromEnv")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.ChatRateLimit)
	assert.Equal(t, "FromEnv", cfg.Organization, "env wins over file")
	assert.Equal(t, "http://messages.local", cfg.MessagesBaseURL, "trailing slash trimmed")
}

func TestLoad_BadValuesFallBackToDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("FETCH_TIMEOUT", "soon")
	t.Setenv("CHAT_RATE_LIMIT", "many")
	t.Setenv("ENABLED", "maybe")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 25, cfg.ChatRateLimit)
	assert.True(t, cfg.Enabled)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := config.Load()
	assert.ErrorContains(t, err, "read config file")
}
