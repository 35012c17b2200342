// Package platform opens the connections to external services with retries.
package platform

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// RetryPolicy controls startup connection attempts.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

func (p RetryPolicy) do(ctx context.Context, logger *zap.Logger, what string, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Connection attempt failed, retrying...",
				zap.String("service", what),
				zap.Uint("attempt", n+1),
				zap.Uint("max_attempts", attempts),
				zap.Duration("retry_delay", p.Delay),
				zap.Error(err),
			)
		}),
	)
}
