package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"AleoRisk/pkg/cache"
	"AleoRisk/pkg/clickhouse"
	"AleoRisk/pkg/kafka"
	"AleoRisk/pkg/logger"
	"AleoRisk/pkg/queue"

	"github.com/creasty/defaults"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. ALEORISK_BACKEND.
const EnvPrefix = "ALEORISK"

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		MaxUploadBytes  int64         `yaml:"max_upload_bytes" default:"5242880"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst" default:"10"`
			PerSecond float64 `yaml:"per_second" default:"0.5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Analysis struct {
		LowThreshold  float64 `yaml:"low_threshold" default:"5"`
		HighThreshold float64 `yaml:"high_threshold" default:"15"`
		MaxWindow     int     `yaml:"max_window" default:"21"`
		Periods       int     `yaml:"periods" default:"12"`
	} `yaml:"analysis"`
	Aleo struct {
		ProgramID string `yaml:"program_id" default:"risk_proof_v1.aleo"`
		Network   string `yaml:"network" default:"testnetbeta"`
	} `yaml:"aleo"`
	Backend struct {
		Type string `yaml:"type" default:"clickhouse"`
	} `yaml:"backend"`
	Submitter struct {
		Type      string        `yaml:"type" default:"kafka"`
		BridgeURL string        `yaml:"bridge_url"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		Retries   int           `yaml:"retries" default:"2"`
	} `yaml:"submitter"`
	Kafka struct {
		Brokers           []string              `yaml:"brokers" default:"[\"localhost:9092\"]"`
		TransactionsTopic string                `yaml:"transactions_topic" default:"aleorisk.transactions"`
		ReportsTopic      string                `yaml:"reports_topic" default:"aleorisk.reports"`
		ConsumeReports    bool                  `yaml:"consume_reports" default:"true"`
		Producer          kafka.ProducerConfig  `yaml:"producer"`
		Consumer          kafka.ConsumerConfig  `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse clickhouse.ClientConfig `yaml:"clickhouse"`
	Redis      struct {
		cache.RedisConfig `yaml:",inline"`
		ResultTTL         time.Duration `yaml:"result_ttl" default:"168h"`
		HistoryLimit      int           `yaml:"history_limit" default:"50"`
		LocalCacheSize    int           `yaml:"local_cache_size" default:"1000"`
	} `yaml:"redis"`
	Queue queue.QueueConfig `yaml:"queue"`
}

// envOverrides lists the settings that may come from the environment.
// Only variables that are set replace file values.
type envOverrides struct {
	Environment       string
	LogLevel          string   `split_words:"true"`
	Port              int
	Backend           string
	Submitter         string
	BridgeURL         string   `envconfig:"BRIDGE_URL"`
	KafkaBrokers      []string `split_words:"true"`
	TransactionsTopic string   `split_words:"true"`
	ReportsTopic      string   `split_words:"true"`
	ClickhouseHost    string   `split_words:"true"`
	ClickhousePass    string   `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisAddr         string   `split_words:"true"`
	RedisPassword     string   `split_words:"true"`
}

// Default returns a Config holding only struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and applies ALEORISK_* overrides.
// A missing file is not an error; defaults plus environment are used.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read env: %w", err)
	}

	setString(&c.Environment, env.Environment)
	setString(&c.Log.Level, env.LogLevel)
	if env.Port > 0 {
		c.Server.Port = env.Port
	}
	setString(&c.Backend.Type, env.Backend)
	setString(&c.Submitter.Type, env.Submitter)
	setString(&c.Submitter.BridgeURL, env.BridgeURL)
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
	}
	setString(&c.Kafka.TransactionsTopic, env.TransactionsTopic)
	setString(&c.Kafka.ReportsTopic, env.ReportsTopic)
	setString(&c.ClickHouse.Host, env.ClickhouseHost)
	setString(&c.ClickHouse.Password, env.ClickhousePass)
	setString(&c.Redis.Addr, env.RedisAddr)
	setString(&c.Redis.Password, env.RedisPassword)
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	switch c.Submitter.Type {
	case "kafka":
		if c.Kafka.TransactionsTopic == "" {
			return fmt.Errorf("kafka.transactions_topic is required for the kafka submitter")
		}
	case "http":
		if c.Submitter.BridgeURL == "" {
			return fmt.Errorf("submitter.bridge_url is required for the http submitter")
		}
	default:
		return fmt.Errorf("submitter.type must be 'kafka' or 'http', got '%s'", c.Submitter.Type)
	}
	if c.Backend.Type == "kafka" || c.Submitter.Type == "kafka" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty")
		}
	}
	if c.Backend.Type == "kafka" && c.Kafka.ReportsTopic == "" {
		return fmt.Errorf("kafka.reports_topic is required for the kafka backend")
	}
	if c.Analysis.LowThreshold <= 0 || c.Analysis.HighThreshold <= c.Analysis.LowThreshold {
		return fmt.Errorf("analysis thresholds must satisfy 0 < low < high, got %g/%g",
			c.Analysis.LowThreshold, c.Analysis.HighThreshold)
	}
	if c.Analysis.Periods <= 0 || c.Analysis.MaxWindow < 2 {
		return fmt.Errorf("analysis.periods must be positive and analysis.max_window at least 2")
	}
	if c.Redis.HistoryLimit <= 0 {
		return fmt.Errorf("redis.history_limit must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
