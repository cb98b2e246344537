package domain

// TrackRequest is the inbound event from the client.
type TrackRequest struct {
	SessionKey string     `json:"session_key,omitempty"`
	UserKey    string     `json:"user_key,omitempty"`
	Kind       ActionKind `json:"kind,omitempty"`
	Subject    string     `json:"subject,omitempty"`
}

// Origin is the transport-level metadata captured once at session creation.
type Origin struct {
	UserAgent  string
	RemoteAddr string
}

// SessionView is a read-only projection of a Session with timestamps
// rendered in the configured display timezone. Its duration_seconds is
// derived at read time from started_at and ended_at, independent of
// whether a terminating action was ever received.
type SessionView struct {
	Session
	StartedAtLocal string `json:"started_at_local"`
	EndedAtLocal   string `json:"ended_at_local"`
}
