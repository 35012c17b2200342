package mocks

import (
	"context"

	"story-server/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

// MockAMQPChannel is a mock type for the AMQPChannel type
type MockAMQPChannel struct {
	mock.Mock
}

// QueueDeclare provides a mock function with given fields: name, durable, autoDelete, exclusive, noWait, args
func (_m *MockAMQPChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ret := _m.Called(name, durable, autoDelete, exclusive, noWait, args)

	var r0 amqp.Queue
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(amqp.Queue)
	}
	return r0, ret.Error(1)
}

// PublishWithContext provides a mock function with given fields: ctx, exchange, key, mandatory, immediate, msg
func (_m *MockAMQPChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	ret := _m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return ret.Error(0)
}

// NewMockAMQPChannel creates a new instance of MockAMQPChannel. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockAMQPChannel(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAMQPChannel {
	m := &MockAMQPChannel{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.AMQPChannel = (*MockAMQPChannel)(nil)
