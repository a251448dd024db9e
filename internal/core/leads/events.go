package leads

import (
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/leadflow/pkg/model"
)

// EventType names a lead lifecycle change.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// SubjectPrefix is the first token of every lead event subject.
const SubjectPrefix = "leads"

// Subject returns the pubsub subject for the event type, e.g. "leads.created".
func (t EventType) Subject() string {
	return SubjectPrefix + "." + string(t)
}

// Event is published after a lead is created, updated or deleted.
// Lead is nil for deletions.
type Event struct {
	ID     string      `json:"id"`
	Type   EventType   `json:"type"`
	LeadID string      `json:"lead_id"`
	Lead   *model.Lead `json:"lead,omitempty"`
	Time   time.Time   `json:"time"`
}

func newEvent(t EventType, leadID string, lead *model.Lead, now time.Time) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   t,
		LeadID: leadID,
		Lead:   lead,
		Time:   now,
	}
}
