package chatguard

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation.
var (
	// ErrEmptyUserID indicates a turn was submitted without a user identity.
	ErrEmptyUserID = errors.New("user ID cannot be empty")

	// ErrEmptyMessage indicates a turn was submitted with no message content.
	ErrEmptyMessage = errors.New("message cannot be empty")
)

// TurnError wraps a turn-level failure with its user and stage.
// The user's message remains persisted even when the turn fails.
type TurnError struct {
	// UserID is the thread the turn belonged to.
	UserID string
	// Stage is where the turn failed ("load", "persist", "respond", "clear").
	Stage string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	return fmt.Sprintf("turn for user %s failed at %s: %v", e.UserID, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TurnError) Unwrap() error {
	return e.Err
}
