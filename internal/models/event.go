package models

import "time"

// EventType names an outbound scheduling event.
type EventType string

const (
	EventTemplateCreated      EventType = "template.created"
	EventTemplateApproved     EventType = "template.approved"
	EventTemplateRejected     EventType = "template.rejected"
	EventTemplateDeactivated  EventType = "template.deactivated"
	EventOccurrencesGenerated EventType = "occurrences.generated"
)

// SchedulingEvent is emitted after a successful state transition and consumed
// asynchronously by notification collaborators. The engine never blocks on
// delivery.
type SchedulingEvent struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	ResourceID string                 `json:"resource_id"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
