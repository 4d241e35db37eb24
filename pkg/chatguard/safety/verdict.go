// Package safety implements the safety classification stage: it asks the
// language model to judge the latest user message, parses the structured
// verdict, records it for audit, and decides whether the turn continues.
package safety

import (
	"time"

	"github.com/google/uuid"
)

// Status is the classifier's accept/reject decision.
type Status string

// Verdict statuses.
const (
	StatusApprove Status = "APPROVE"
	StatusReject  Status = "REJECT"
)

// ViolationType categorizes why a message was rejected.
type ViolationType string

// Violation categories.
const (
	ViolationJailbreak ViolationType = "JAILBREAK"
	ViolationHarmful   ViolationType = "HARMFUL"
	ViolationAbuse     ViolationType = "ABUSE"
	ViolationNone      ViolationType = "NONE"
)

// Verdict is the classifier's structured decision for one user message.
type Verdict struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	MessageID string        `json:"message_id"`
	Status    Status        `json:"status"`
	Violation ViolationType `json:"violation_type"`
	Reasoning string        `json:"reasoning"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewVerdict creates a verdict with a fresh ID and UTC timestamp.
func NewVerdict(userID, messageID string, status Status, violation ViolationType, reasoning string) Verdict {
	return Verdict{
		ID:        uuid.New().String(),
		UserID:    userID,
		MessageID: messageID,
		Status:    status,
		Violation: violation,
		Reasoning: reasoning,
		CreatedAt: time.Now().UTC(),
	}
}

// EventType categorizes safety events.
type EventType string

// Event types. Only QueryBlocked is emitted by the classifier today;
// the other categories exist for external detectors writing to the same
// audit sink.
const (
	EventQueryBlocked      EventType = "QUERY_BLOCKED"
	EventPolicyViolation   EventType = "POLICY_VIOLATION"
	EventSuspiciousPattern EventType = "SUSPICIOUS_PATTERN"
)

// Event is created when a verdict rejects a message.
// It is always linked to the verdict that produced it.
type Event struct {
	ID        string    `json:"id"`
	VerdictID string    `json:"verdict_id"`
	Type      EventType `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent creates an event linked to a verdict.
func NewEvent(verdictID string, eventType EventType) Event {
	return Event{
		ID:        uuid.New().String(),
		VerdictID: verdictID,
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
	}
}
