package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
storage:
  type: memory
jwt:
  secret: dev-secret
  expire_hours: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 0.7, cfg.Scoring.PassThreshold)
	assert.Equal(t, 1, cfg.Scoring.GradingRetries)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, 3306, cfg.Database.Port)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: memory
database:
  host: db.internal
ai:
  provider: openai
`)
	t.Setenv("DB_HOST", "10.0.0.5")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Database.Host)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
storage:
  type: memory
jwt:
  secret: short
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestLoadConfig_InvalidThreshold(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: memory
scoring:
  pass_threshold: 1.5
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass_threshold")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
