package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, 500, cfg.Validation.DailyLimit)
	assert.Equal(t, "memory", cfg.Validation.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.Validation.CacheTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Validation.Timezone)
	assert.Equal(t, 0.8, cfg.Validation.StrictWeight)
	assert.Equal(t, 0.4, cfg.Validation.RealtimeWeight)
	assert.Equal(t, 30, cfg.Validation.BandLow)
	assert.Equal(t, 60, cfg.Validation.BandMedium)
	assert.Equal(t, 85, cfg.Validation.BandHigh)
	assert.Equal(t, map[string]int{"low": 5, "medium": 15, "high": 30, "critical": 50}, cfg.Validation.SeverityPoints)
	assert.Equal(t, 1500*time.Millisecond, cfg.Validation.SLAThreshold)

	assert.True(t, cfg.Semantic.Enabled)
	assert.Equal(t, "gpt-4o-mini", cfg.Semantic.Model)
	assert.Equal(t, time.Second, cfg.Semantic.Timeout)

	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "compliance.verdicts", cfg.Kafka.VerdictTopic)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
environment: production
server:
  http_port: 9090
validation:
  daily_limit: 100
  cache_backend: redis
  timezone: UTC
semantic:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, 100, cfg.Validation.DailyLimit)
	assert.Equal(t, "redis", cfg.Validation.CacheBackend)
	assert.Equal(t, "UTC", cfg.Validation.Timezone)
	assert.False(t, cfg.Semantic.Enabled)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.8, cfg.Validation.StrictWeight)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
validation:
  daily_limit: -1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily_limit")
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		chdir(t, t.TempDir())
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("bad port", func(t *testing.T) {
		cfg := base(t)
		cfg.Server.HTTPPort = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad cache backend", func(t *testing.T) {
		cfg := base(t)
		cfg.Validation.CacheBackend = "memcached"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad limiter backend", func(t *testing.T) {
		cfg := base(t)
		cfg.Validation.LimiterBackend = "dynamo"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bands not increasing", func(t *testing.T) {
		cfg := base(t)
		cfg.Validation.BandMedium = cfg.Validation.BandLow
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing severity points", func(t *testing.T) {
		cfg := base(t)
		delete(cfg.Validation.SeverityPoints, "critical")
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad timezone", func(t *testing.T) {
		cfg := base(t)
		cfg.Validation.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non positive semantic timeout", func(t *testing.T) {
		cfg := base(t)
		cfg.Semantic.Timeout = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	c := RedisConfig{Host: "redis.internal", Port: 6380}
	assert.Equal(t, "redis.internal:6380", c.Addr())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, Name: "validation_engine", Username: "app", Password: "secret", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 dbname=validation_engine user=app password=secret sslmode=disable", c.ConnectionString())
}
