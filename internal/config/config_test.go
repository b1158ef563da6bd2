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
  port: 9090
  host: "0.0.0.0"

jobs:
  incoming_dir: "./in"
  processing_dir: "./processing"
  output_dir: "./out"
  max_upload_size_mb: 100

storage:
  type: "local"
  local_path: "./test-data"

redis:
  enabled: true
  addr: "cache:6379"
  timeout_seconds: 10
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "./in", cfg.Jobs.IncomingDir)
	assert.Equal(t, "./processing", cfg.Jobs.ProcessingDir)
	assert.Equal(t, "./out", cfg.Jobs.OutputDir)
	assert.Equal(t, int64(100*1024*1024), cfg.Jobs.MaxUploadSize())

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "./test-data", cfg.Storage.LocalPath)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Redis.TimeoutSeconds)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9999\n"), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "./data/incoming", cfg.Jobs.IncomingDir)
	assert.Equal(t, "./data/processing", cfg.Jobs.ProcessingDir)
	assert.Equal(t, "./data/output", cfg.Jobs.OutputDir)
	assert.Equal(t, "./config/rules.json", cfg.Jobs.RulesPath)
	assert.Equal(t, "./config/columns_metadata.json", cfg.Jobs.ColumnsMetadataPath)
	assert.Equal(t, "./config/settings.json", cfg.Jobs.SettingsPath)
	assert.Equal(t, "./data/dedup_mapping.json", cfg.Jobs.DedupStorePath)
	assert.Equal(t, 50, cfg.Jobs.MaxUploadSizeMB)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 5, cfg.Redis.TimeoutSeconds)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  type: local\n"), 0o644))

	os.Setenv("DEDUPE_S3_BUCKET", "dedupe-incoming")
	os.Setenv("DEDUPE_S3_REGION", "us-east-1")
	os.Setenv("DEDUPE_REDIS_ADDR", "redis.internal:6379")
	defer func() {
		os.Unsetenv("DEDUPE_S3_BUCKET")
		os.Unsetenv("DEDUPE_S3_REGION")
		os.Unsetenv("DEDUPE_REDIS_ADDR")
	}()

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "dedupe-incoming", cfg.Storage.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3Region)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestMaxUploadSize(t *testing.T) {
	cfg := JobsConfig{MaxUploadSizeMB: 50}
	assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize())
}

func TestRedisTimeout(t *testing.T) {
	cfg := RedisConfig{TimeoutSeconds: 5}
	assert.Equal(t, 5*1000000000, int(cfg.Timeout().Nanoseconds()))
}
