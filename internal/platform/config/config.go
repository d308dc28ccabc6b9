// Package config builds typed configuration from environment variables so
// main stays lean. Defaults favor a local development setup; production
// deployments override via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "payguard/pkg/platform/strings"
)

// Config is the top-level application configuration.
type Config struct {
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Kafka     Kafka
	Execution Execution
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures database connectivity. An empty DSN means run on the
// in-memory stores (tests, local experiments).
type Postgres struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Redis captures cache connectivity for the execution dedupe guard. An empty
// URL means Redis is not configured and dedupe falls back to the broker's
// at-least-once semantics alone.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures broker connectivity for execution signals.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Execution tunes the outbox worker.
type Execution struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("PAYGUARD_ADDR", ":8080"),
			JWTSigningKey: envOr("PAYGUARD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN:             os.Getenv("PAYGUARD_POSTGRES_DSN"),
			MaxOpenConns:    envIntOr("PAYGUARD_POSTGRES_MAX_OPEN_CONNS", 16),
			ConnMaxLifetime: envDurationOr("PAYGUARD_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("PAYGUARD_REDIS_URL"),
			DialTimeout:  envDurationOr("PAYGUARD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("PAYGUARD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("PAYGUARD_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("PAYGUARD_KAFKA_BROKERS")),
			Topic:   envOr("PAYGUARD_KAFKA_EXECUTION_TOPIC", "payguard.execution-signals"),
		},
		Execution: Execution{
			PollInterval: envDurationOr("PAYGUARD_EXECUTION_POLL_INTERVAL", 500*time.Millisecond),
			BatchSize:    envIntOr("PAYGUARD_EXECUTION_BATCH_SIZE", 50),
			MaxAttempts:  envIntOr("PAYGUARD_EXECUTION_MAX_ATTEMPTS", 10),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
