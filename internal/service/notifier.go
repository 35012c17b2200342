package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"story-server/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier publishes story events.
type Notifier interface {
	Notify(ctx context.Context, event models.StoryEvent) error
}

// AMQPChannel is the subset of *amqp.Channel used by the notifier.
type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitMQNotifier struct {
	channel   AMQPChannel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQNotifier declares the events queue and returns a publisher for it.
// The channel is owned and closed by the caller.
func NewRabbitMQNotifier(ch AMQPChannel, queueName string, logger *zap.Logger) (Notifier, error) {
	_, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare story events queue '%s': %w", queueName, err)
	}
	logger.Info("Story events queue declared", zap.String("queue", queueName))

	return &rabbitMQNotifier{channel: ch, queueName: queueName, logger: logger.Named("RabbitMQNotifier")}, nil
}

func (n *rabbitMQNotifier) Notify(ctx context.Context, event models.StoryEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal story event %s: %w", event.ID, err)
	}

	err = n.channel.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    event.OccurredAt,
			AppId:        "story-server",
			MessageId:    event.ID,
			Type:         string(event.Event),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish story event %s: %w", event.ID, err)
	}

	n.logger.Debug("Story event published",
		zap.String("eventID", event.ID),
		zap.String("event", string(event.Event)),
		zap.String("queue", n.queueName),
	)
	return nil
}

type noopNotifier struct{}

// NewNoopNotifier returns a Notifier that drops every event.
func NewNoopNotifier() Notifier { return noopNotifier{} }

func (noopNotifier) Notify(context.Context, models.StoryEvent) error { return nil }
