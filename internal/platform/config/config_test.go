package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NotEmpty(t, cfg.Server.JWTSigningKey)
	assert.Empty(t, cfg.Redis.URL, "redis disabled by default")
	assert.Empty(t, cfg.Postgres.DSN, "postgres disabled by default")
	assert.Nil(t, cfg.Kafka.Brokers, "kafka disabled by default")
	assert.False(t, cfg.SLA.FallbackRetry, "fallback retry off by default")
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HAVEN_ADDR", ":9999")
	t.Setenv("HAVEN_KAFKA_BROKERS", "broker1:9092, broker2:9092,,")
	t.Setenv("HAVEN_SLA_FALLBACK_RETRY", "true")
	t.Setenv("HAVEN_REDIS_POOL_SIZE", "25")
	t.Setenv("HAVEN_REDIS_DIAL_TIMEOUT", "250ms")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.SLA.FallbackRetry)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.DialTimeout)
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("HAVEN_REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("HAVEN_SLA_FALLBACK_RETRY", "not-a-bool")
	t.Setenv("HAVEN_REDIS_DIAL_TIMEOUT", "eleven")

	cfg := FromEnv()

	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.False(t, cfg.SLA.FallbackRetry)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}
