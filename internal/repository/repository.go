package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"story-server/internal/models"
)

// StoryRepository stores story records keyed by username and story id.
// Implementations must be safe for concurrent use.
type StoryRepository interface {
	// ListAll returns every user's stories: username -> story id -> record.
	ListAll(ctx context.Context) (map[string]map[string]models.StoryRecord, error)
	// ListUser returns the stories of one user. An unknown user yields an empty map.
	ListUser(ctx context.Context, username string) (map[string]models.StoryRecord, error)
	// Save inserts or replaces a record.
	Save(ctx context.Context, username, storyID string, record models.StoryRecord) error
	// Delete removes a record. Deleting an unknown record is not an error.
	Delete(ctx context.Context, username, storyID string) error
}

// decodeJSON decodes a single JSON value into v. Numbers become json.Number
// so stored integers keep their exact text.
func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// encodeJSON marshals v without HTML escaping.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
