// Package domain defines the core domain models for the tracker.
package domain

import "time"

// Session is the accumulated activity log for one browsing session.
type Session struct {
	SessionKey      string       `json:"session_key"`
	UserKey         string       `json:"user_key"`
	UserAgent       string       `json:"user_agent,omitempty"`
	RemoteAddr      string       `json:"remote_addr,omitempty"`
	State           SessionState `json:"state"`
	Actions         []Action     `json:"actions"`
	StartedAt       time.Time    `json:"started_at"`
	EndedAt         time.Time    `json:"ended_at"`
	DurationSeconds *int64       `json:"duration_seconds,omitempty"`
}

// Action is a single tracked interaction within a session. Actions are
// append-only; insertion order is chronological.
type Action struct {
	Kind            ActionKind `json:"kind"`
	Subject         string     `json:"subject,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
	OccurredAtLocal string     `json:"occurred_at_local,omitempty"`
}

// Ended reports whether the session has received a terminating action.
func (s *Session) Ended() bool {
	return s.State == SessionStateEnded
}
