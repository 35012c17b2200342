package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"story-server/internal/models"

	"go.uber.org/zap"
)

var _ StoryRepository = (*fileStoryRepository)(nil)

// storyDocument is username -> story id -> record fields. Fields are kept
// as raw JSON so records are rewritten byte for byte and keys other than
// story and serialized_story survive a save.
type storyDocument map[string]map[string]map[string]json.RawMessage

const (
	storyField           = "story"
	serializedStoryField = "serialized_story"
)

// fileStoryRepository keeps every story in one JSON document.
// All access goes through mu; writes replace the file atomically.
type fileStoryRepository struct {
	path   string
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewFileStoryRepository creates a repository backed by the JSON file at path.
func NewFileStoryRepository(path string, logger *zap.Logger) StoryRepository {
	return &fileStoryRepository{
		path:   path,
		logger: logger.Named("FileStoryRepo"),
	}
}

// EnsureStoryFile creates an empty story document when none exists.
func EnsureStoryFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return writeFileAtomic(path, []byte("{}"))
}

func (r *fileStoryRepository) ListAll(ctx context.Context) (map[string]map[string]models.StoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	result := make(map[string]map[string]models.StoryRecord, len(doc))
	for username := range doc {
		stories, err := doc.userRecords(username)
		if err != nil {
			return nil, err
		}
		result[username] = stories
	}
	return result, nil
}

func (r *fileStoryRepository) ListUser(ctx context.Context, username string) (map[string]models.StoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	return doc.userRecords(username)
}

func (r *fileStoryRepository) Save(ctx context.Context, username, storyID string, record models.StoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	story, err := encodeJSON(record.Story)
	if err != nil {
		return fmt.Errorf("failed to encode story: %w", err)
	}
	serialized, err := encodeJSON(record.SerializedStory)
	if err != nil {
		return fmt.Errorf("failed to encode story: %w", err)
	}

	doc, err := r.read()
	if err != nil {
		return err
	}
	if doc[username] == nil {
		doc[username] = make(map[string]map[string]json.RawMessage)
	}
	fields := doc[username][storyID]
	if fields == nil {
		fields = make(map[string]json.RawMessage, 2)
		doc[username][storyID] = fields
	}
	fields[storyField] = story
	fields[serializedStoryField] = serialized

	if err := r.write(doc); err != nil {
		return err
	}
	r.logger.Debug("Story saved", zap.String("username", username), zap.String("storyID", storyID))
	return nil
}

func (r *fileStoryRepository) Delete(ctx context.Context, username, storyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return err
	}
	stories, ok := doc[username]
	if !ok {
		return nil
	}
	if _, ok := stories[storyID]; !ok {
		return nil
	}
	delete(stories, storyID)

	if err := r.write(doc); err != nil {
		return err
	}
	r.logger.Debug("Story deleted", zap.String("username", username), zap.String("storyID", storyID))
	return nil
}

func (r *fileStoryRepository) read() (storyDocument, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}
	doc := make(storyDocument)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidDocument, filepath.Base(r.path), err)
	}
	if doc == nil {
		doc = make(storyDocument)
	}
	return doc, nil
}

func (doc storyDocument) userRecords(username string) (map[string]models.StoryRecord, error) {
	stories := make(map[string]models.StoryRecord, len(doc[username]))
	for storyID, fields := range doc[username] {
		var record models.StoryRecord
		if raw, ok := fields[storyField]; ok {
			if err := decodeJSON(raw, &record.Story); err != nil {
				return nil, fmt.Errorf("%w: story %s/%s: %v", models.ErrInvalidDocument, username, storyID, err)
			}
		}
		if raw, ok := fields[serializedStoryField]; ok {
			if err := json.Unmarshal(raw, &record.SerializedStory); err != nil {
				return nil, fmt.Errorf("%w: story %s/%s: %v", models.ErrInvalidDocument, username, storyID, err)
			}
		}
		stories[storyID] = record
	}
	return stories, nil
}

func (r *fileStoryRepository) write(doc storyDocument) error {
	data, err := encodeJSON(doc)
	if err != nil {
		return fmt.Errorf("failed to encode story file: %w", err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		r.logger.Error("Failed to write story file", zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("failed to write story file: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
