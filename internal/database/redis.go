package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/config"
)

// ConnectRedis builds the client and verifies reachability with a ping,
// bounded by the configured connect timeout.
func ConnectRedis(ctx context.Context, cfg config.RedisCfg, logger *zap.SugaredLogger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Infow("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}
