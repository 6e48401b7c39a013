package models

import "time"

// EventKind labels engine events pushed to the notification dispatcher.
type EventKind string

const (
	EventAssignmentChanged EventKind = "assignment.changed"
	EventReportSubmitted   EventKind = "report.submitted"
	EventReportReviewed    EventKind = "report.reviewed"
)

// Event is a fire-and-forget notification payload. Dispatch is never on the
// critical path of the operation that produced it.
type Event struct {
	ID         string                 `json:"id"`
	Kind       EventKind              `json:"kind"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
