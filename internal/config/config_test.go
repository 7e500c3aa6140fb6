package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.QueryStaleTime)
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, "mpc:query:", cfg.CacheKeyPrefix)
	assert.Equal(t, 3000, cfg.DevServer.Port)
	assert.Equal(t, "listings-photos", cfg.DevServer.MinIO.Bucket)
	assert.Equal(t, "marketplace", cfg.DevServer.Mongo.Database)
	assert.Empty(t, cfg.DevServer.Mongo.URI)
	assert.Equal(t, 587, cfg.DevServer.SMTP.Port)
	assert.Equal(t, ".marketplace_history", cfg.HistoryFile)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("QUERY_STALE_TIME", "30s")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DEV_SERVER_PORT", "4000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL, "trailing slash is trimmed")
	assert.Equal(t, 30*time.Second, cfg.QueryStaleTime)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 4000, cfg.DevServer.Port)
	assert.True(t, cfg.DevServer.MinIO.UseSSL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.DevServer.Mongo.URI)
	assert.Equal(t, "smtp.example.com", cfg.DevServer.SMTP.Host)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "API_BASE_URL=http://10.0.2.2:3000\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.env"), []byte(content), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.2.2:3000", cfg.APIBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{APIBaseURL: "http://localhost:3000", CacheBackend: CacheBackendMemory}},
		{name: "missing scheme", cfg: Config{APIBaseURL: "localhost:3000", CacheBackend: CacheBackendMemory}, wantErr: true},
		{name: "unknown backend", cfg: Config{APIBaseURL: "http://localhost", CacheBackend: "memcached"}, wantErr: true},
		{name: "negative stale time", cfg: Config{APIBaseURL: "http://localhost", CacheBackend: CacheBackendMemory, QueryStaleTime: -time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
