package mocks

import (
	"context"

	"story-server/internal/models"
	"story-server/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// ListAll provides a mock function with given fields: ctx
func (_m *MockStoryRepository) ListAll(ctx context.Context) (map[string]map[string]models.StoryRecord, error) {
	ret := _m.Called(ctx)

	var r0 map[string]map[string]models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]map[string]models.StoryRecord)
	}
	return r0, ret.Error(1)
}

// ListUser provides a mock function with given fields: ctx, username
func (_m *MockStoryRepository) ListUser(ctx context.Context, username string) (map[string]models.StoryRecord, error) {
	ret := _m.Called(ctx, username)

	var r0 map[string]models.StoryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]models.StoryRecord)
	}
	return r0, ret.Error(1)
}

// Save provides a mock function with given fields: ctx, username, storyID, record
func (_m *MockStoryRepository) Save(ctx context.Context, username string, storyID string, record models.StoryRecord) error {
	ret := _m.Called(ctx, username, storyID, record)
	return ret.Error(0)
}

// Delete provides a mock function with given fields: ctx, username, storyID
func (_m *MockStoryRepository) Delete(ctx context.Context, username string, storyID string) error {
	ret := _m.Called(ctx, username, storyID)
	return ret.Error(0)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)
