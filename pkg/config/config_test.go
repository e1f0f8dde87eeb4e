package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
server:
  port: 8080
postgres:
  host: localhost
  port: 5432
  database: opinionpointer
  user: op
sentiment:
  base_url: https://sentiment.example.test
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sentiment.RefetchEvery != 30*time.Minute {
		t.Fatalf("unexpected refetch interval %v", cfg.Sentiment.RefetchEvery)
	}
	if cfg.Sentiment.StaleAfter != 15*time.Minute {
		t.Fatalf("unexpected stale threshold %v", cfg.Sentiment.StaleAfter)
	}
	if cfg.Sentiment.HealthEvery != 5*time.Minute {
		t.Fatalf("unexpected health interval %v", cfg.Sentiment.HealthEvery)
	}
	if cfg.Redis.Prefix != "opinionpointer" {
		t.Fatalf("unexpected redis prefix %q", cfg.Redis.Prefix)
	}
	if cfg.Collector.Workers <= 0 {
		t.Fatalf("expected default workers")
	}
	if cfg.Sentiment.ReconnectDelay != 5*time.Second {
		t.Fatalf("unexpected reconnect delay %v", cfg.Sentiment.ReconnectDelay)
	}
	if cfg.Deploy.MaxRestarts != 10 {
		t.Fatalf("unexpected max restarts %d", cfg.Deploy.MaxRestarts)
	}
}

func TestLoadReconnectDelayInheritsRestartDelay(t *testing.T) {
	body := minimalYAML + `
deploy:
  restart_delay: 90s
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sentiment.ReconnectDelay != 90*time.Second {
		t.Fatalf("reconnect delay should inherit restart_delay, got %v", cfg.Sentiment.ReconnectDelay)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SENTIMENT_API_KEY", "secret")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sentiment.APIKey != "secret" {
		t.Fatalf("api key override missing")
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("postgres host override missing")
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsMissingEnvironment(t *testing.T) {
	if _, err := Load(writeConfig(t, "server:\n  port: 1\n")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRejectsMissingSentimentURL(t *testing.T) {
	body := `
environment: test
postgres:
  host: localhost
  database: op
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	body := minimalYAML + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected validation error")
	}
}
