// Package tracker implements session resolution, event append and
// read-side queries on top of the store.
package tracker

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/soundwave/tracker/clock"
	"github.com/soundwave/tracker/domain"
	"github.com/soundwave/tracker/store"
)

const maxLabelLen = 256

// Processor resolves the target session for an inbound event, appends the
// action and maintains the session lifecycle.
type Processor struct {
	store     store.Store
	clock     clock.Clock
	formatter *clock.Formatter
	timeout   time.Duration
}

// NewProcessor creates a new processor. timeout bounds every store
// round-trip; zero means no bound.
func NewProcessor(s store.Store, clk clock.Clock, formatter *clock.Formatter, timeout time.Duration) *Processor {
	return &Processor{
		store:     s,
		clock:     clk,
		formatter: formatter,
		timeout:   timeout,
	}
}

// Track processes one inbound event: find-or-create the session, append
// the action, bump ended_at and, on a terminating action, compute the
// duration and close the session.
//
// Timestamps come from the injected clock; client-supplied times are
// never trusted. Origin metadata is captured only when the session is
// created and never overwritten afterwards.
func (p *Processor) Track(ctx context.Context, req domain.TrackRequest, origin domain.Origin) (*domain.Session, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.DefaultKind
	}
	userKey := req.UserKey
	if userKey == "" {
		userKey = domain.DefaultUserKey
	}
	sessionKey := req.SessionKey
	if sessionKey == "" {
		sessionKey = NewSessionKey()
	}

	now := p.clock.Now()

	// Find-or-create. The conditional insert is atomic on session_key, so
	// concurrent first-events for one key agree on a single session.
	candidate := &domain.Session{
		SessionKey: sessionKey,
		UserKey:    userKey,
		UserAgent:  origin.UserAgent,
		RemoteAddr: origin.RemoteAddr,
		State:      domain.SessionStateActive,
		Actions:    []domain.Action{},
		StartedAt:  now,
		EndedAt:    now,
	}
	created, err := p.store.CreateSessionIfAbsent(ctx, candidate)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "create session", Err: err}
	}

	session := candidate
	if !created {
		session, err = p.store.GetSession(ctx, sessionKey)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "get session", Err: err}
		}
		if session == nil {
			return nil, domain.ErrNotFound
		}
		if session.Ended() {
			return nil, domain.ErrSessionEnded
		}
	}

	action := domain.Action{
		Kind:            kind,
		Subject:         req.Subject,
		OccurredAt:      now,
		OccurredAtLocal: p.formatter.Display(now),
	}

	if kind == domain.KindSessionEnd {
		duration := wholeSeconds(session.StartedAt, now)
		if err := p.store.EndSession(ctx, sessionKey, &action, now, duration); err != nil {
			return nil, &domain.PersistenceError{Op: "end session", Err: err}
		}
		session.State = domain.SessionStateEnded
		session.DurationSeconds = &duration
	} else {
		if err := p.store.AppendAction(ctx, sessionKey, &action, now); err != nil {
			return nil, &domain.PersistenceError{Op: "append action", Err: err}
		}
	}

	session.Actions = append(session.Actions, action)
	session.EndedAt = now
	return session, nil
}

// NewSessionKey generates a fresh globally-unique session key.
func NewSessionKey() string {
	return "sess_" + uuid.New().String()
}

func validate(req domain.TrackRequest) error {
	if len(req.Kind) > maxLabelLen {
		return &domain.ValidationError{Field: "kind", Reason: "too long"}
	}
	if len(req.UserKey) > maxLabelLen {
		return &domain.ValidationError{Field: "user_key", Reason: "too long"}
	}
	if len(req.Subject) > maxLabelLen {
		return &domain.ValidationError{Field: "subject", Reason: "too long"}
	}
	if len(req.SessionKey) > maxLabelLen {
		return &domain.ValidationError{Field: "session_key", Reason: "too long"}
	}
	return nil
}

// wholeSeconds rounds the interval to the nearest whole second.
func wholeSeconds(from, to time.Time) int64 {
	return int64(math.Round(to.Sub(from).Seconds()))
}
