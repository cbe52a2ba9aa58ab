package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileValuesAndDefaults(t *testing.T) {
	path := writeConfigFile(t, `
service:
  name: scan-gateway
  port: 9001
auth:
  jwt_secret: file-secret
quota:
  daily_limit: 25
scanner:
  api_key: file-api-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Service.Port)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 25, cfg.Quota.DailyLimit)
	assert.Equal(t, "file-api-key", cfg.Scanner.APIKey)

	// Unset fields fall back to defaults.
	assert.Equal(t, defaultRedisAddress, cfg.Redis.Address)
	assert.Equal(t, defaultScannerBaseURL, cfg.Scanner.BaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
service:
  port: 9001
quota:
  daily_limit: 25
`)

	t.Setenv("SCAN_GATEWAY_PORT", "9002")
	t.Setenv("SCAN_QUOTA_PER_DAY", "50")
	t.Setenv("REDIS_ADDRESS", "redis-prod:6379")
	t.Setenv("ALLOWED_ORIGINS", "chrome-extension://abc, https://app.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9002, cfg.Service.Port)
	assert.Equal(t, 50, cfg.Quota.DailyLimit)
	assert.Equal(t, "redis-prod:6379", cfg.Redis.Address)
	assert.Equal(t, []string{"chrome-extension://abc", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "config.yml", Path("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/scan-gateway/config.yml")
	assert.Equal(t, "/etc/scan-gateway/config.yml", Path("config.yml"))
}
