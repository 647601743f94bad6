// Package shared provides types used across all modules in rl-project.
package shared

import "time"

// ============================================================================
// Session Types
// ============================================================================

// SessionState represents the lifecycle state of a training session.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateRunning   SessionState = "running"
	SessionStateCompleted SessionState = "completed"
	SessionStateCancelled SessionState = "cancelled"
	SessionStateFailed    SessionState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	switch s {
	case SessionStateCompleted, SessionStateCancelled, SessionStateFailed:
		return true
	}
	return false
}

// ============================================================================
// Event Types
// ============================================================================

// EventType identifies the kind of a training event.
type EventType string

const (
	EventTrainingStarted   EventType = "training_started"
	EventTrainingProgress  EventType = "training_progress"
	EventTrainingCompleted EventType = "training_completed"
	EventTrainingCancelled EventType = "training_cancelled"
	EventTrainingFailed    EventType = "training_failed"
)

// Event is the envelope carried by the event bus. The payload is one of the
// typed payload structs owned by the training package.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp int64     `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Now returns the current time in milliseconds since the epoch.
func Now() int64 {
	return time.Now().UnixMilli()
}
