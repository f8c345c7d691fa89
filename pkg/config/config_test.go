package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 5.0, c.Analysis.LowThreshold)
	assert.Equal(t, 15.0, c.Analysis.HighThreshold)
	assert.Equal(t, 21, c.Analysis.MaxWindow)
	assert.Equal(t, 12, c.Analysis.Periods)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "aleorisk.reports", c.Kafka.ReportsTopic)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, 50, c.Redis.HistoryLimit)
	assert.Equal(t, 4, c.Queue.Workers)
	assert.Equal(t, 10*time.Second, c.Queue.RetryDelay)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 9000, c.ClickHouse.Port)
	assert.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
environment: staging
server:
  port: 9090
backend:
  type: kafka
redis:
  addr: redis:6379
  result_ttl: 1h
analysis:
  low_threshold: 4
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "kafka", c.Backend.Type)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, time.Hour, c.Redis.ResultTTL)
	assert.Equal(t, 4.0, c.Analysis.LowThreshold)
	assert.Equal(t, 15.0, c.Analysis.HighThreshold, "untouched keys keep defaults")
}

func TestLoadWithEnv(t *testing.T) {
	path := writeFile(t, "environment: production\n")
	t.Setenv("ALEORISK_BACKEND", "kafka")
	t.Setenv("ALEORISK_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ALEORISK_REDIS_ADDR", "cache:6379")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "kafka", c.Backend.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend":    func(c *Config) { c.Backend.Type = "postgres" },
		"submitter":  func(c *Config) { c.Submitter.Type = "carrier-pigeon" },
		"bridge":     func(c *Config) { c.Submitter.Type = "http"; c.Submitter.BridgeURL = "" },
		"thresholds": func(c *Config) { c.Analysis.LowThreshold = 20 },
		"brokers":    func(c *Config) { c.Kafka.Brokers = nil },
		"history":    func(c *Config) { c.Redis.HistoryLimit = 0 },
		"env":        func(c *Config) { c.Environment = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Default()
			require.NoError(t, err)
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	_, err := Load(writeFile(t, "backend:\n  type: nowhere\n"))
	assert.ErrorContains(t, err, "backend.type")
}
