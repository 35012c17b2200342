package platform

import (
	"context"
	"fmt"
	"time"

	"story-server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis creates a Redis client and waits until PING succeeds.
func ConnectRedis(ctx context.Context, cfg *config.Config, policy RetryPolicy, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	logger.Info("Attempting to connect to Redis", zap.String("address", opts.Addr), zap.Int("db", opts.DB))

	client := redis.NewClient(opts)
	err := policy.do(ctx, logger, "redis", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		client.Close()
		logger.Error("Failed to connect to Redis", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return client, nil
}
