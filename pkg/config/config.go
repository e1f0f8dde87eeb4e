package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	// Deploy mirrors the process-manager descriptor: log destinations,
	// memory restart threshold and restart backoff for supervised loops.
	Deploy struct {
		LogFile          string        `yaml:"log_file"`
		MaxMemoryMB      int           `yaml:"max_memory_restart_mb"`
		MemCheckInterval time.Duration `yaml:"mem_check_interval"`
		MaxRestarts      int           `yaml:"max_restarts"`
		RestartDelay     time.Duration `yaml:"restart_delay"`
	} `yaml:"deploy"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Postgres struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		Database        string        `yaml:"database"`
		User            string        `yaml:"user"`
		Password        string        `yaml:"password"`
		SSLMode         string        `yaml:"ssl_mode"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Sentiment struct {
		BaseURL        string        `yaml:"base_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		Timeout        time.Duration `yaml:"timeout"`
		RefetchEvery   time.Duration `yaml:"refetch_every"`   // poll interval for the cached read
		StaleAfter     time.Duration `yaml:"stale_after"`     // snapshot age before a refetch
		HealthEvery    time.Duration `yaml:"health_every"`    // provider health poll
		ReconnectDelay time.Duration `yaml:"reconnect_delay"` // ws stream backoff base
	} `yaml:"sentiment"`
	Collector struct {
		Enabled    bool          `yaml:"enabled"`
		Interval   time.Duration `yaml:"interval"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		MaxRPS     float64       `yaml:"max_rps"` // per-channel fetch rate
	} `yaml:"collector"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SENTIMENT_API_KEY"); v != "" {
		c.Sentiment.APIKey = v
	}
	if v := os.Getenv("SENTIMENT_BASE_URL"); v != "" {
		c.Sentiment.BaseURL = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Sentiment.RefetchEvery <= 0 {
		c.Sentiment.RefetchEvery = 30 * time.Minute
	}
	if c.Sentiment.StaleAfter <= 0 {
		c.Sentiment.StaleAfter = 15 * time.Minute
	}
	if c.Sentiment.HealthEvery <= 0 {
		c.Sentiment.HealthEvery = 5 * time.Minute
	}
	if c.Sentiment.Timeout <= 0 {
		c.Sentiment.Timeout = 10 * time.Second
	}
	if c.Deploy.MemCheckInterval <= 0 {
		c.Deploy.MemCheckInterval = 30 * time.Second
	}
	if c.Deploy.RestartDelay <= 0 {
		c.Deploy.RestartDelay = 5 * time.Second
	}
	if c.Deploy.MaxRestarts <= 0 {
		c.Deploy.MaxRestarts = 10
	}
	// The stream backoff inherits the deploy restart delay unless set
	// explicitly.
	if c.Sentiment.ReconnectDelay <= 0 {
		c.Sentiment.ReconnectDelay = c.Deploy.RestartDelay
	}
	if c.Collector.Workers <= 0 {
		c.Collector.Workers = 2
	}
	if c.Collector.Interval <= 0 {
		c.Collector.Interval = 15 * time.Minute
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "opinionpointer"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres.database is required")
	}
	if c.Sentiment.BaseURL == "" {
		return fmt.Errorf("sentiment.base_url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
