package repository

import (
	"context"
	"fmt"

	"story-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ StoryRepository = (*redisStoryRepository)(nil)

// redisStoryRepository stores each user's stories in a hash
// <prefix>:user:<username> (field = story id, value = JSON record) and
// tracks usernames in the set <prefix>:users.
type redisStoryRepository struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisStoryRepository creates a Redis-backed StoryRepository.
func NewRedisStoryRepository(client redis.UniversalClient, keyPrefix string, logger *zap.Logger) StoryRepository {
	if keyPrefix == "" {
		keyPrefix = "stories"
	}
	return &redisStoryRepository{
		client: client,
		prefix: keyPrefix,
		logger: logger.Named("RedisStoryRepo"),
	}
}

func (r *redisStoryRepository) usersKey() string {
	return r.prefix + ":users"
}

func (r *redisStoryRepository) userKey(username string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, username)
}

func (r *redisStoryRepository) ListAll(ctx context.Context) (map[string]map[string]models.StoryRecord, error) {
	usernames, err := r.client.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		r.logger.Error("Failed to list story users", zap.Error(err))
		return nil, fmt.Errorf("failed to list story users: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(usernames))
	for _, username := range usernames {
		cmds[username] = pipe.HGetAll(ctx, r.userKey(username))
	}
	if len(usernames) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Error("Failed to load user stories", zap.Error(err))
			return nil, fmt.Errorf("failed to load user stories: %w", err)
		}
	}

	result := make(map[string]map[string]models.StoryRecord, len(usernames))
	for username, cmd := range cmds {
		stories, err := decodeStoryHash(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", username, err)
		}
		result[username] = stories
	}
	return result, nil
}

func (r *redisStoryRepository) ListUser(ctx context.Context, username string) (map[string]models.StoryRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(username)).Result()
	if err != nil {
		r.logger.Error("Failed to load user stories", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to load stories of %s: %w", username, err)
	}
	return decodeStoryHash(fields)
}

func (r *redisStoryRepository) Save(ctx context.Context, username, storyID string, record models.StoryRecord) error {
	data, err := encodeJSON(record)
	if err != nil {
		return fmt.Errorf("failed to encode story: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.usersKey(), username)
		pipe.HSet(ctx, r.userKey(username), storyID, data)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save story", zap.String("username", username), zap.String("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *redisStoryRepository) Delete(ctx context.Context, username, storyID string) error {
	if err := r.client.HDel(ctx, r.userKey(username), storyID).Err(); err != nil {
		r.logger.Error("Failed to delete story", zap.String("username", username), zap.String("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

func decodeStoryHash(fields map[string]string) (map[string]models.StoryRecord, error) {
	stories := make(map[string]models.StoryRecord, len(fields))
	for storyID, raw := range fields {
		var record models.StoryRecord
		if err := decodeJSON([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("%w: story %s: %v", models.ErrInvalidDocument, storyID, err)
		}
		stories[storyID] = record
	}
	return stories, nil
}
