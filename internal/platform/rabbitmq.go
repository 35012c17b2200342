package platform

import (
	"context"
	"fmt"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConnectRabbitMQ dials the broker and logs when the connection drops.
func ConnectRabbitMQ(ctx context.Context, rawURL string, policy RetryPolicy, logger *zap.Logger) (*amqp.Connection, error) {
	logger.Info("Attempting to connect to RabbitMQ", zap.String("url", MaskURL(rawURL)))

	var conn *amqp.Connection
	err := policy.do(ctx, logger, "rabbitmq", func() error {
		c, err := amqp.Dial(rawURL)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	go func() {
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		if err := <-closed; err != nil {
			logger.Error("RabbitMQ connection closed unexpectedly", zap.Error(err))
		} else {
			logger.Info("RabbitMQ connection closed")
		}
	}()

	logger.Info("Successfully connected to RabbitMQ")
	return conn, nil
}

// MaskURL hides the password of a connection URL.
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
