// Package config builds runtime configuration from environment variables so
// main stays lean. Every setting has a safe default: the server boots with
// in-memory stores and no external brokers when nothing is configured.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	havenstrings "haven/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Isolation IsolationConfig
	Storage   StorageConfig
	SLA       SLAConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr          string
	JWTSigningKey string
	AdminToken    string
}

// RedisConfig captures Redis connection settings. An empty URL disables
// Redis; dependents fall back to their in-memory implementations.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig captures the audit/storage database. An empty DSN keeps
// everything in memory.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig captures audit pipeline brokers. No brokers disables the
// outbox relay and consumer.
type KafkaConfig struct {
	Brokers []string
}

// IsolationConfig points at an optional segregation policy override file.
// Empty means built-in defaults.
type IsolationConfig struct {
	PolicyPath string
}

// StorageConfig carries the at-rest encryption key for the KV store,
// base64-encoded, 32 bytes decoded. Empty disables encryption. The key is
// never logged.
type StorageConfig struct {
	EncryptionKey string
}

// SLAConfig holds guarantee enforcer knobs.
type SLAConfig struct {
	// FallbackRetry allows one fallback retry after a missed deadline.
	// Default off: a crisis-tier caller gets its answer immediately.
	FallbackRetry bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:          getEnv("HAVEN_ADDR", ":8080"),
			JWTSigningKey: getEnv("HAVEN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AdminToken:    os.Getenv("HAVEN_ADMIN_TOKEN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("HAVEN_REDIS_URL"),
			PoolSize:     getInt("HAVEN_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("HAVEN_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("HAVEN_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("HAVEN_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("HAVEN_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("HAVEN_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: getList("HAVEN_KAFKA_BROKERS"),
		},
		Isolation: IsolationConfig{
			PolicyPath: os.Getenv("HAVEN_ISOLATION_POLICY"),
		},
		Storage: StorageConfig{
			EncryptionKey: os.Getenv("HAVEN_STORAGE_KEY"),
		},
		SLA: SLAConfig{
			FallbackRetry: getBool("HAVEN_SLA_FALLBACK_RETRY", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getList splits a comma-separated value, trimming whitespace and dropping
// empty and duplicate entries.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := havenstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
