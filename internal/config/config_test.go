package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "@RocketShoes:cart", cfg.StorageKey)
	assert.Equal(t, 5*time.Second, cfg.CatalogTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("CATALOG_TIMEOUT", "250ms")
	t.Setenv("REDIS_TTL", "60")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg := Load()
	assert.Equal(t, DriverRedis, cfg.StorageDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.CatalogTimeout)
	assert.Equal(t, time.Minute, cfg.RedisTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	assert.Equal(t, 3*time.Second, getEnvDuration("REQUEST_TIMEOUT", 3*time.Second))
}

func TestValidate(t *testing.T) {
	base := Config{CatalogURL: "http://catalog", StorageKey: "k", StorageDriver: DriverMemory}
	require.NoError(t, base.Validate())

	unknown := base
	unknown.StorageDriver = "etcd"
	assert.ErrorContains(t, unknown.Validate(), "unknown STORAGE_DRIVER")

	sqlite := base
	sqlite.StorageDriver = DriverSQLite
	assert.ErrorContains(t, sqlite.Validate(), "SQL_DSN")

	noURL := base
	noURL.CatalogURL = ""
	assert.Error(t, noURL.Validate())

	kafka := base
	kafka.KafkaBrokers = []string{"localhost:9092"}
	assert.ErrorContains(t, kafka.Validate(), "KAFKA_NOTIFY_TOPIC")
}
