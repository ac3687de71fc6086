package storage

import (
	"context"
	"fmt"

	"github.com/fjod/rocketcart/internal/config"
)

// Open builds the backend selected by cfg.StorageDriver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverRedis:
		client, err := ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.RedisTTL), nil
	case config.DriverMongo:
		db, err := ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(db), nil
	case config.DriverSQLite, config.DriverPostgres:
		return NewSQLStore(cfg.StorageDriver, cfg.SQLDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
