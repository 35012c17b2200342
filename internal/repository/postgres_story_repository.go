package repository

import (
	"context"
	"fmt"

	"story-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var _ StoryRepository = (*pgStoryRepository)(nil)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	listAllStoriesQuery = `
        SELECT username, story_id, story, serialized_story, updated_at
        FROM saved_stories
        ORDER BY username, story_id`
	listUserStoriesQuery = `
        SELECT username, story_id, story, serialized_story, updated_at
        FROM saved_stories
        WHERE username = $1
        ORDER BY story_id`
	upsertStoryQuery = `
        INSERT INTO saved_stories (username, story_id, story, serialized_story)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (username, story_id) DO UPDATE SET
            story = EXCLUDED.story,
            serialized_story = EXCLUDED.serialized_story,
            updated_at = NOW()`
	deleteStoryQuery = `DELETE FROM saved_stories WHERE username = $1 AND story_id = $2`
)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository creates a PostgreSQL-backed StoryRepository.
// The saved_stories table is created by the embedded migrations.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) ListAll(ctx context.Context) (map[string]map[string]models.StoryRecord, error) {
	var rows []models.SavedStoryRow
	if err := pgxscan.Select(ctx, r.db, &rows, listAllStoriesQuery); err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	result := make(map[string]map[string]models.StoryRecord)
	for _, row := range rows {
		record, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		if result[row.Username] == nil {
			result[row.Username] = make(map[string]models.StoryRecord)
		}
		result[row.Username][row.StoryID] = record
	}
	return result, nil
}

func (r *pgStoryRepository) ListUser(ctx context.Context, username string) (map[string]models.StoryRecord, error) {
	var rows []models.SavedStoryRow
	if err := pgxscan.Select(ctx, r.db, &rows, listUserStoriesQuery, username); err != nil {
		r.logger.Error("Failed to list user stories", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories of %s: %w", username, err)
	}

	result := make(map[string]models.StoryRecord, len(rows))
	for _, row := range rows {
		record, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		result[row.StoryID] = record
	}
	return result, nil
}

func (r *pgStoryRepository) Save(ctx context.Context, username, storyID string, record models.StoryRecord) error {
	story, err := encodeJSON(record.Story)
	if err != nil {
		return fmt.Errorf("failed to encode story: %w", err)
	}
	if _, err := r.db.Exec(ctx, upsertStoryQuery, username, storyID, story, record.SerializedStory); err != nil {
		r.logger.Error("Failed to save story", zap.String("username", username), zap.String("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, username, storyID string) error {
	tag, err := r.db.Exec(ctx, deleteStoryQuery, username, storyID)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.String("username", username), zap.String("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug("Delete matched no story", zap.String("username", username), zap.String("storyID", storyID))
	}
	return nil
}

func rowToRecord(row models.SavedStoryRow) (models.StoryRecord, error) {
	record := models.StoryRecord{SerializedStory: row.SerializedStory}
	if err := decodeJSON(row.Story, &record.Story); err != nil {
		return models.StoryRecord{}, fmt.Errorf("%w: story %s/%s: %v", models.ErrInvalidDocument, row.Username, row.StoryID, err)
	}
	return record, nil
}
