package mocks

import (
	"context"

	"story-server/internal/models"
	"story-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, event
func (_m *MockNotifier) Notify(ctx context.Context, event models.StoryEvent) error {
	ret := _m.Called(ctx, event)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, models.StoryEvent) error); ok {
		r0 = rf(ctx, event)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.Notifier = (*MockNotifier)(nil)
