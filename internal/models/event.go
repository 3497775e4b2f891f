package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventSessionUpdated  EventType = "session.updated"
	EventSessionDeleted  EventType = "session.deleted"
	EventPaymentRecorded EventType = "payment.recorded"
	EventPaymentUpdated  EventType = "payment.updated"
	EventPaymentDeleted  EventType = "payment.deleted"
)

// Event is a change notification pushed to connected dashboards. TeacherID
// scopes delivery to the owning teacher.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  uuid.UUID `json:"session_id"`
	TeacherID  uuid.UUID `json:"teacher_id"`
	Session    *Session  `json:"session,omitempty"`
	Payment    *Payment  `json:"payment,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
