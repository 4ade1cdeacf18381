package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/al-bashkir/erp-portal/internal/config"
	"github.com/al-bashkir/erp-portal/internal/storage"
)

const redisPingTimeout = 5 * time.Second

// OpenStorage opens the configured durable store. The returned function
// releases it.
func OpenStorage(cfg *config.StorageConfig) (storage.Store, func() error, error) {
	switch cfg.Driver {
	case "file":
		fs, err := storage.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		slog.Info("file storage opened", "path", fs.Path())
		return fs, func() error { return nil }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %v", storage.ErrRedisUnavailable, err)
		}

		rs := storage.NewRedisStore(client, cfg.Redis.Prefix)
		slog.Info("redis storage opened", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return rs, rs.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
