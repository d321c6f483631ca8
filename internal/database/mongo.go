package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/config"
)

// ConnectMongo dials Mongo and verifies the connection with a ping, bounded by
// the configured connect timeout.
func ConnectMongo(ctx context.Context, cfg config.MongoCfg, logger *zap.SugaredLogger) (*mongo.Database, *mongo.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Infow("mongo connected", "database", cfg.Database, "connect_timeout", cfg.ConnectTimeout())
	return client.Database(cfg.Database), client, nil
}
