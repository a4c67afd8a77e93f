package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv removes keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// missingEnvFile returns a path that does not exist so that Load only sees t.Setenv values.
func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	unsetenv(t, "JWT_SECRET", "PORT", "DB_DRIVER", "STORAGE_DRIVER", "SESSION_TTL", "FEED_CACHE_TTL")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.FeedCacheTTL)
	assert.Len(t, cfg.JWTSecret, 64, "a random secret is generated when unset")
}

func TestLoad_FromEnvFile(t *testing.T) {
	unsetenv(t, "JWT_SECRET", "FEED_CACHE_TTL", "REDIS_HOST")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nFEED_CACHE_TTL=30s\nREDIS_HOST=cache\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.FeedCacheTTL)
	assert.Equal(t, "cache", cfg.Redis.Host)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown db driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "unknown storage driver", env: map[string]string{"STORAGE_DRIVER": "ftp"}},
		{name: "s3 without bucket", env: map[string]string{"STORAGE_DRIVER": "s3"}},
		{name: "malformed duration", env: map[string]string{"SESSION_TTL": "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetenv(t, "DB_DRIVER", "STORAGE_DRIVER", "S3_BUCKET", "SESSION_TTL")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
