// Package audit records membership lifecycle events. Domain code emits events
// through a Recorder; a background worker drains them to a Publisher so the
// enrollment path never blocks on the audit pipeline.
package audit

import (
	"context"
	"time"
)

// EventType names what happened. Values double as the Kafka record key space.
type EventType string

const (
	EventMemberEnrolled     EventType = "member.enrolled"
	EventMemberUpdated      EventType = "member.updated"
	EventCardDelivered      EventType = "card.delivered"
	EventCardDeliveryFailed EventType = "card.delivery_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so publishers can fan out.
type Event struct {
	Type             EventType `json:"type"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id,omitempty"`
	MemberID         string    `json:"member_id,omitempty"`
	RetirementNumber string    `json:"retirement_number"`
	CardNumber       string    `json:"card_number,omitempty"`
	BranchID         int64     `json:"branch_id,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

// Publisher delivers one event to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
