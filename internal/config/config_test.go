package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 9090

database:
  url: "postgres://app:secret@db:5432/events?sslmode=disable"

redis:
  enabled: true
  addr: "redis:6379"
  cache_ttl_seconds: 60

sns:
  cert_cache_ttl_minutes: 15
  cert_cache_max_entries: 8

tracking:
  base_url: "https://mail.example.com"
  fallback_redirect_url: "https://example.com/home"

unsubscribe:
  secret: "test-secret"
  token_ttl_days: 7

mailing:
  enabled: true
  from_email: "news@example.com"
  from_name: "Example News"
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://app:secret@db:5432/events?sslmode=disable", cfg.Database.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 60, cfg.Redis.CacheTTLSeconds)
	assert.Equal(t, 15, cfg.SNS.CertCacheTTLMinutes)
	assert.Equal(t, 8, cfg.SNS.CertCacheMaxEntries)
	assert.Equal(t, "https://mail.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, "test-secret", cfg.Unsubscribe.Secret)
	assert.Equal(t, 7, cfg.Unsubscribe.TokenTTLDays)
	assert.Equal(t, "news@example.com", cfg.Mailing.FromEmail)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Unsubscribe.TokenTTLDays)
	assert.Equal(t, 64, cfg.SNS.CertCacheMaxEntries)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "https://example.com", cfg.Tracking.FallbackRedirectURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [not a map"), 0o644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-override/db")
	t.Setenv("UNSUBSCRIBE_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "env-redis:6379")
	t.Setenv("PORT", "9999")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-override/db", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.Unsubscribe.Secret)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 9999, cfg.Server.Port)
}
