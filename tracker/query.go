package tracker

import (
	"context"
	"time"

	"github.com/soundwave/tracker/clock"
	"github.com/soundwave/tracker/domain"
	"github.com/soundwave/tracker/store"
)

// Query is the read side: sessions sorted by recency, optionally
// projected into the display timezone. It never mutates stored sessions.
type Query struct {
	store     store.Store
	formatter *clock.Formatter
	timeout   time.Duration
}

// NewQuery creates a new query service.
func NewQuery(s store.Store, formatter *clock.Formatter, timeout time.Duration) *Query {
	return &Query{
		store:     s,
		formatter: formatter,
		timeout:   timeout,
	}
}

// ListSessions returns sessions sorted by started_at descending, with
// raw machine timestamps.
func (q *Query) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	ctx, cancel := q.bound(ctx)
	defer cancel()

	sessions, err := q.store.ListSessions(ctx, limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// ListSessionViews returns the same listing projected into the display
// timezone. Each view carries local start/end strings and a
// duration_seconds derived at read time from started_at and ended_at,
// whether or not a terminating action was ever received.
func (q *Query) ListSessionViews(ctx context.Context, limit int) ([]domain.SessionView, error) {
	sessions, err := q.ListSessions(ctx, limit)
	if err != nil {
		return nil, err
	}

	views := make([]domain.SessionView, len(sessions))
	for i, s := range sessions {
		duration := wholeSeconds(s.StartedAt, s.EndedAt)
		view := domain.SessionView{
			Session:        s,
			StartedAtLocal: q.formatter.Display(s.StartedAt),
			EndedAtLocal:   q.formatter.Display(s.EndedAt),
		}
		view.DurationSeconds = &duration
		views[i] = view
	}
	return views, nil
}

// GetSession returns one session by key, or domain.ErrNotFound.
func (q *Query) GetSession(ctx context.Context, sessionKey string) (*domain.Session, error) {
	ctx, cancel := q.bound(ctx)
	defer cancel()

	session, err := q.store.GetSession(ctx, sessionKey)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get session", Err: err}
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (q *Query) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}
