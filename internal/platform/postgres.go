package platform

import (
	"context"
	"fmt"
	"time"

	"story-server/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pgConnectTimeout = 5 * time.Second
	pgPingTimeout    = 2 * time.Second
)

// ConnectPostgres creates a pgx pool and waits until the database answers.
func ConnectPostgres(ctx context.Context, cfg *config.Config, policy RetryPolicy, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout
	poolConfig.ConnConfig.ConnectTimeout = pgConnectTimeout

	logger.Info("Attempting to connect to PostgreSQL",
		zap.String("dsn", cfg.GetMaskedDSN()),
		zap.Uint("max_attempts", policy.Attempts),
	)

	var pool *pgxpool.Pool
	err = policy.do(ctx, logger, "postgres", func() error {
		connectCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
		defer cancel()
		p, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err != nil {
			return err
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, pgPingTimeout)
		defer pingCancel()
		if err := p.Ping(pingCtx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL")
	return pool, nil
}
