// Package state defines the conversation state that flows through the
// turn pipeline: messages, the triggering message, and the routing decision.
package state

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a thread's ordered log.
// Messages are immutable once created; ordering is insertion order.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a fresh ID and UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Decision is the explicit routing signal written by the safety stage.
// The router inspects this value, never the shape of the trailing message.
type Decision string

// Routing decisions.
const (
	// DecideContinue routes the turn to the domain responder.
	// The zero value routes the same way, so an unset decision never blocks.
	DecideContinue Decision = "continue"

	// DecideHalt terminates the turn after the safety stage.
	DecideHalt Decision = "halt"
)

// Turn is the per-turn state threaded through the pipeline nodes.
// It exists for the duration of one execution and is serialized into
// the thread's checkpoint between nodes.
type Turn struct {
	// UserID identifies the thread this turn belongs to.
	UserID string `json:"user_id,omitempty"`

	// Messages is the full ordered history including the triggering message.
	Messages []Message `json:"messages"`

	// Current references the user message that triggered this turn.
	Current *Message `json:"current_message,omitempty"`

	// Decision is set by the safety node and read by the conditional edge.
	Decision Decision `json:"decision,omitempty"`
}

// Last returns the trailing message, or false if the turn has none.
func (t Turn) Last() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// WithMessage returns a copy of the turn with msg appended.
// The original message slice is not mutated.
func (t Turn) WithMessage(msg Message) Turn {
	msgs := make([]Message, 0, len(t.Messages)+1)
	msgs = append(msgs, t.Messages...)
	msgs = append(msgs, msg)
	t.Messages = msgs
	return t
}
