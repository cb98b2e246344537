// Package domain defines the core domain models for the tracker.
package domain

// SessionState represents the lifecycle state of a session.
type SessionState string

const (
	SessionStateActive SessionState = "active"
	SessionStateEnded  SessionState = "ended"
)

// ActionKind labels what the visitor did.
type ActionKind string

const (
	KindPageVisit  ActionKind = "page_visit"
	KindSearch     ActionKind = "search"
	KindCartAdd    ActionKind = "cart_add"
	KindCartRemove ActionKind = "cart_remove"
	KindCheckout   ActionKind = "checkout"
	// KindSessionEnd is the reserved terminating label: processing it
	// computes the session duration and moves the session to ended.
	KindSessionEnd ActionKind = "session_end"
)

// DefaultKind is substituted when an event arrives without a kind.
const DefaultKind = KindPageVisit

// DefaultUserKey is substituted when an event arrives without a user key.
const DefaultUserKey = "guest"
