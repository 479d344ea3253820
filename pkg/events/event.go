package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the wire envelope delivered to every destination. Events are
// immutable once constructed and live only for the duration of one publish
// call.
type Event struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type"`
	OrganizationID string         `json:"organization_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewEvent constructs an Event for the given type and organization with a
// fresh id and a UTC timestamp.
func NewEvent(eventType, organizationID string, data map[string]any) Event {
	return Event{
		EventID:        uuid.NewString(),
		EventType:      eventType,
		OrganizationID: organizationID,
		Timestamp:      time.Now().UTC(),
		Data:           data,
	}
}
