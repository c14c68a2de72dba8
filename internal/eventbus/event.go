package eventbus

import "time"

type EventType string

const (
	EventAgentAdded    EventType = "agent.added"
	EventAgentRemoved  EventType = "agent.removed"
	EventTaskAdded     EventType = "task.added"
	EventTaskUpdated   EventType = "task.updated"
	EventTaskRemoved   EventType = "task.removed"
	EventTasksReplaced EventType = "tasks.replaced"
	EventViewChanged   EventType = "view.changed"
	EventDateChanged   EventType = "date.changed"
)

type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resource_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	// Version is the board version the event was committed at.
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}
