package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "drawings", cfg.UploadsDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 1024, cfg.QueueMaxDepth)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 2*time.Second, cfg.MockExtractDelay)
	assert.Equal(t, time.Duration(0), cfg.ExtractTimeout)
	assert.Equal(t, time.Duration(0), cfg.JobRetention)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("WORKERS", "8")
	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MOCK_EXTRACT_DELAY", "250ms")
	t.Setenv("JOB_RETENTION", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.MockExtractDelay)
	assert.Equal(t, 24*time.Hour, cfg.JobRetention)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "WORKERS", "0"},
		{"unknown queue backend", "QUEUE_BACKEND", "kafka"},
		{"unknown store backend", "STORE_BACKEND", "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
