package storage

import (
	"context"
	"fmt"

	"github.com/longtimeno-c/InfinityWhiteboard/internal/cache"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/config"
	"github.com/longtimeno-c/InfinityWhiteboard/internal/database"
)

// Open 설정된 드라이버로 Store 생성
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := database.ConnectDB(database.LoadConfig())
		if err != nil {
			return nil, err
		}
		return New(config.DriverPostgres, NewPostgresBackend(db)), nil

	case config.DriverRedis:
		client, err := cache.NewRedisClient(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return New(config.DriverRedis, NewRedisBackend(client, cfg.Redis.KeyPrefix)), nil

	case config.DriverFile, "":
		backend, err := NewFileBackend(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		return New(config.DriverFile, backend), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
