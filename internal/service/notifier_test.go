package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"story-server/internal/mocks"
	"story-server/internal/models"
	"story-server/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRabbitMQNotifier_DeclaresQueue(t *testing.T) {
	ch := mocks.NewMockAMQPChannel(t)
	ch.On("QueueDeclare", "story_events", true, false, false, false, amqp.Table{"x-queue-mode": "lazy"}).
		Return(amqp.Queue{Name: "story_events"}, nil).Once()

	n, err := service.NewRabbitMQNotifier(ch, "story_events", zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestRabbitMQNotifier_DeclareFailure(t *testing.T) {
	ch := mocks.NewMockAMQPChannel(t)
	ch.On("QueueDeclare", "story_events", true, false, false, false, mock.Anything).
		Return(amqp.Queue{}, errors.New("channel closed")).Once()

	_, err := service.NewRabbitMQNotifier(ch, "story_events", zap.NewNop())
	assert.ErrorContains(t, err, "channel closed")
}

func TestRabbitMQNotifier_Notify(t *testing.T) {
	ch := mocks.NewMockAMQPChannel(t)
	ch.On("QueueDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(amqp.Queue{Name: "events"}, nil).Once()

	var published amqp.Publishing
	ch.On("PublishWithContext", mock.Anything, "", "events", false, false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	n, err := service.NewRabbitMQNotifier(ch, "events", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), models.StoryEvent{
		Event:    models.EventStorySaved,
		Username: "u1",
		StoryID:  "s1",
		Status:   "success",
	}))

	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, "story-server", published.AppId)
	assert.Equal(t, "story.saved", published.Type)
	assert.NotEmpty(t, published.MessageId)
	assert.WithinDuration(t, time.Now(), published.Timestamp, time.Minute)

	var event models.StoryEvent
	require.NoError(t, json.Unmarshal(published.Body, &event))
	assert.Equal(t, published.MessageId, event.ID)
	assert.Equal(t, models.EventStorySaved, event.Event)
	assert.Equal(t, "u1", event.Username)
	assert.Equal(t, "s1", event.StoryID)
}

func TestRabbitMQNotifier_PublishFailure(t *testing.T) {
	ch := mocks.NewMockAMQPChannel(t)
	ch.On("QueueDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(amqp.Queue{}, nil).Once()
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("no route")).Once()

	n, err := service.NewRabbitMQNotifier(ch, "events", zap.NewNop())
	require.NoError(t, err)

	err = n.Notify(context.Background(), models.StoryEvent{ID: "fixed", Event: models.EventStoryDeleted})
	assert.ErrorContains(t, err, "fixed")
	assert.ErrorContains(t, err, "no route")
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, service.NewNoopNotifier().Notify(context.Background(), models.StoryEvent{}))
}
