package models

import "time"

// StoryEventType names the kind of event published on the story events queue.
type StoryEventType string

const (
	EventStorySaved          StoryEventType = "story.saved"
	EventStoryDeleted        StoryEventType = "story.deleted"
	EventGenerationCompleted StoryEventType = "generation.completed"
	EventGenerationFailed    StoryEventType = "generation.failed"
)

// StoryEvent is published to RabbitMQ when stories change or generations finish.
type StoryEvent struct {
	ID         string         `json:"id"`
	Event      StoryEventType `json:"event"`
	Username   string         `json:"username,omitempty"`
	StoryID    string         `json:"story_id,omitempty"`
	Config     string         `json:"config,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	Status     string         `json:"status,omitempty"`
	Error      string         `json:"error,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
