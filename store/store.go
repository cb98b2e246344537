// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/soundwave/tracker/domain"
)

// Store defines the interface for session persistence.
type Store interface {
	// CreateSessionIfAbsent inserts the session if and only if no session
	// with the same key exists. The insert is atomic: under concurrent
	// first-events for one key exactly one caller observes created == true.
	CreateSessionIfAbsent(ctx context.Context, session *domain.Session) (created bool, err error)

	// GetSession retrieves a session with its actions in insertion order.
	// Returns (nil, nil) when the key is unknown.
	GetSession(ctx context.Context, sessionKey string) (*domain.Session, error)

	// AppendAction appends an action and bumps ended_at in one transaction.
	AppendAction(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time) error

	// EndSession appends the terminating action, sets the duration and
	// moves the session to ended, all in one transaction.
	EndSession(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time, durationSeconds int64) error

	// ListSessions returns sessions sorted by started_at descending, each
	// with its full action log. The result is materialized, not streamed.
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)

	// Lifecycle
	Close() error
}
