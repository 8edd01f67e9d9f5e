package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "structured-pricer", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 30*time.Second, cfg.API.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.API.CORS.AllowedOrigins)
	assert.Equal(t, 0.04, cfg.Pricing.RiskFreeRate)
	assert.Equal(t, 10000, cfg.Pricing.SimulationPaths)
	assert.Equal(t, int64(42), cfg.Pricing.Seed)
	assert.False(t, cfg.Pricing.RandomizeSeed)
	assert.Equal(t, 100, cfg.Pricing.WarrantUnits)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "pricing.valuations", cfg.Kafka.Topic)
	assert.Equal(t, 5, cfg.Kafka.Breaker.MaxFailures)
	assert.Equal(t, 1024, cfg.Kafka.QueueSize)
	assert.Equal(t, "drop_oldest", cfg.Kafka.Overflow)
	assert.Equal(t, 9090, cfg.Metrics.Prometheus.Port)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
app:
  log_level: debug
pricing:
  simulation_paths: 50000
  workers: 8
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  breaker:
    timeout: 5s
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("PRICER_PRICING_SEED", "7")
	t.Setenv("PRICER_API_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 50000, cfg.Pricing.SimulationPaths)
	assert.Equal(t, 8, cfg.Pricing.Workers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Kafka.Breaker.Timeout)
	assert.Equal(t, int64(7), cfg.Pricing.Seed)
	assert.Equal(t, 9000, cfg.API.Port)
	// Untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Pricing.ChunkSize)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pricing: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("PRICER_CONFIG_PATH", "/etc/pricer.yaml")
	assert.Equal(t, "/etc/pricer.yaml", GetConfigPath())
}
