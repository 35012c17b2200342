package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"story-server/internal/models"
	"story-server/internal/repository"

	"go.uber.org/zap"
)

// StoryService validates story requests and shapes repository data for the API.
type StoryService struct {
	repo     repository.StoryRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewStoryService creates a StoryService. A nil notifier drops events.
func NewStoryService(repo repository.StoryRepository, notifier Notifier, logger *zap.Logger) *StoryService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	return &StoryService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.Named("StoryService"),
	}
}

// ListAll returns username -> [[id, value], ...] for every user.
// value is the serialized form when serialized is true.
func (s *StoryService) ListAll(ctx context.Context, serialized bool) (map[string][]models.StoryEntry, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]models.StoryEntry, len(all))
	for username, stories := range all {
		result[username] = toEntries(stories, serialized)
	}
	return result, nil
}

// ListUser returns [[id, value], ...] for one user, sorted by id.
func (s *StoryService) ListUser(ctx context.Context, username string, serialized bool) ([]models.StoryEntry, error) {
	stories, err := s.repo.ListUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return toEntries(stories, serialized), nil
}

// Save upserts a story. Every field must be truthy, otherwise
// models.ErrInvalidPayload is returned and nothing is written.
func (s *StoryService) Save(ctx context.Context, req models.SaveStoryRequest) error {
	if !IsTruthy(req.Username) || !IsTruthy(req.ID) || !IsTruthy(req.Story) || !IsTruthy(req.SerializedStory) {
		return models.ErrInvalidPayload
	}
	username, err := NormalizeKey(req.Username)
	if err != nil {
		return err
	}
	storyID, err := NormalizeKey(req.ID)
	if err != nil {
		return err
	}
	serializedStory, ok := req.SerializedStory.(string)
	if !ok {
		return fmt.Errorf("%w: serialized_story must be a string", models.ErrInvalidPayload)
	}

	record := models.StoryRecord{Story: req.Story, SerializedStory: serializedStory}
	if err := s.repo.Save(ctx, username, storyID, record); err != nil {
		return err
	}

	s.logger.Info("Story saved", zap.String("username", username), zap.String("storyID", storyID))
	publish(ctx, s.notifier, models.StoryEvent{
		Event:    models.EventStorySaved,
		Username: username,
		StoryID:  storyID,
		Status:   "success",
	}, s.logger)
	return nil
}

// Delete removes a story. Unknown stories are not an error.
func (s *StoryService) Delete(ctx context.Context, req models.DeleteStoryRequest) error {
	if !IsTruthy(req.Username) || !IsTruthy(req.ID) {
		return models.ErrInvalidPayload
	}
	username, err := NormalizeKey(req.Username)
	if err != nil {
		return err
	}
	storyID, err := NormalizeKey(req.ID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, username, storyID); err != nil {
		return err
	}

	s.logger.Info("Story deleted", zap.String("username", username), zap.String("storyID", storyID))
	publish(ctx, s.notifier, models.StoryEvent{
		Event:    models.EventStoryDeleted,
		Username: username,
		StoryID:  storyID,
		Status:   "success",
	}, s.logger)
	return nil
}

func toEntries(stories map[string]models.StoryRecord, serialized bool) []models.StoryEntry {
	ids := make([]string, 0, len(stories))
	for id := range stories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]models.StoryEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, models.NewStoryEntry(id, stories[id], serialized))
	}
	return entries
}

// IsTruthy reports whether a decoded JSON value counts as present:
// not null, not false, not zero and not empty.
func IsTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case int:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}

// NormalizeKey turns a username or story id into its storage key.
// Numbers are stored by their decimal text.
func NormalizeKey(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	default:
		return "", fmt.Errorf("%w: expected a string or a number, got %T", models.ErrInvalidPayload, v)
	}
}
