package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	OTelStdout      bool

	CatalogURL     string
	CatalogTimeout time.Duration

	StorageDriver string
	StorageKey    string
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
	MongoURI      string
	MongoDBName   string
	SQLDSN        string

	KafkaBrokers     []string
	KafkaNotifyTopic string
}

func Load() Config {
	return Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		OTelStdout:      getEnv("OTEL_STDOUT", "false") == "true",

		CatalogURL:     getEnv("CATALOG_URL", "http://localhost:3333"),
		CatalogTimeout: getEnvDuration("CATALOG_TIMEOUT", 5*time.Second),

		StorageDriver: getEnv("STORAGE_DRIVER", DriverMemory),
		StorageKey:    getEnv("STORAGE_KEY", "@RocketShoes:cart"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTTL:      getEnvDuration("REDIS_TTL", 0),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "cartdb"),
		SQLDSN:        getEnv("SQL_DSN", "rocketcart.db"),

		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaNotifyTopic: getEnv("KAFKA_NOTIFY_TOPIC", "cart-notifications"),
	}
}

func (c Config) Validate() error {
	if c.CatalogURL == "" {
		return errors.New("CATALOG_URL must not be empty")
	}
	if c.StorageKey == "" {
		return errors.New("STORAGE_KEY must not be empty")
	}
	switch c.StorageDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis driver")
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDBName == "" {
			return errors.New("MONGO_URI and MONGO_DB_NAME are required for the mongo driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.SQLDSN == "" {
			return fmt.Errorf("SQL_DSN is required for the %s driver", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaNotifyTopic == "" {
		return errors.New("KAFKA_NOTIFY_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
