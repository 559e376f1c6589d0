package notify

import (
	"context"

	"github.com/google/uuid"
)

// EventKind names the engine events the notification collaborator may care
// about.
type EventKind string

const (
	EventClaimed     EventKind = "claimed"
	EventCompleted   EventKind = "completed"
	EventAssigned    EventKind = "assigned"
	EventBlocked     EventKind = "blocked"
	EventOverdue     EventKind = "overdue"
	EventUndone      EventKind = "undone"
	EventWeeklyReady EventKind = "weekly_ready"
)

// Event is the record the engine emits after a successful transition or
// sweep. It is at-most-once from the engine's perspective: delivery failure
// never rolls anything back.
type Event struct {
	ID           string         `json:"id"`
	Kind         EventKind      `json:"kind"`
	OccurrenceID *int64         `json:"occurrence_id,omitempty"`
	MemberID     *int64         `json:"member_id,omitempty"`
	Summary      map[string]any `json:"summary,omitempty"`
}

// NewEvent builds an Event with a fresh identifier.
func NewEvent(kind EventKind, occurrenceID, memberID *int64, summary map[string]any) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		OccurrenceID: occurrenceID,
		MemberID:     memberID,
		Summary:      summary,
	}
}

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Emit(ev Event)
}

// Sink is the delivery transport (websocket hub, webhook poster, test
// recorder).
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}
