package models

import "time"

// StoryRecord is a single saved story of a user.
type StoryRecord struct {
	Story           interface{} `json:"story"`
	SerializedStory string      `json:"serialized_story"`
}

// StoryEntry pairs a story id with either the story value or its serialized form.
// It marshals as a two-element JSON array: [id, value].
type StoryEntry [2]interface{}

// NewStoryEntry builds an entry for the given record.
func NewStoryEntry(id string, record StoryRecord, serialized bool) StoryEntry {
	if serialized {
		return StoryEntry{id, record.SerializedStory}
	}
	return StoryEntry{id, record.Story}
}

// SaveStoryRequest is the body of POST /save.
type SaveStoryRequest struct {
	Username        interface{} `json:"username"`
	ID              interface{} `json:"id"`
	Story           interface{} `json:"story"`
	SerializedStory interface{} `json:"serialized_story"`
}

// DeleteStoryRequest is the body of POST /delete.
type DeleteStoryRequest struct {
	Username interface{} `json:"username"`
	ID       interface{} `json:"id"`
}

// SavedStoryRow is the PostgreSQL representation of a story record.
type SavedStoryRow struct {
	Username        string    `db:"username"`
	StoryID         string    `db:"story_id"`
	Story           []byte    `db:"story"`
	SerializedStory string    `db:"serialized_story"`
	UpdatedAt       time.Time `db:"updated_at"`
}
