package mocks

import (
	"context"

	"story-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, systemPrompt, userInput
func (_m *MockAIClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, service.UsageInfo, error) {
	ret := _m.Called(ctx, systemPrompt, userInput)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, systemPrompt, userInput)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(string)
	}

	var r1 service.UsageInfo
	if ret.Get(1) != nil {
		r1 = ret.Get(1).(service.UsageInfo)
	}

	return r0, r1, ret.Error(2)
}

// GenerateTextStream provides a mock function with given fields: ctx, systemPrompt, userInput, chunkHandler
// When the first return value is a []string, each element is passed to chunkHandler in order.
func (_m *MockAIClient) GenerateTextStream(ctx context.Context, systemPrompt string, userInput string, chunkHandler func(string) error) (service.UsageInfo, error) {
	ret := _m.Called(ctx, systemPrompt, userInput, chunkHandler)

	var r0 service.UsageInfo
	switch v := ret.Get(0).(type) {
	case []string:
		for _, chunk := range v {
			if err := chunkHandler(chunk); err != nil {
				return r0, err
			}
		}
	case service.UsageInfo:
		r0 = v
	}

	return r0, ret.Error(1)
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockAIClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.AIClient = (*MockAIClient)(nil)
