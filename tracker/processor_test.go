package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soundwave/tracker/clock"
	"github.com/soundwave/tracker/domain"
	"github.com/soundwave/tracker/store"
	"github.com/soundwave/tracker/tests/helpers"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestProcessor(t *testing.T) (*Processor, *fakeClock, store.Store) {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	clk := &fakeClock{now: time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)}
	formatter, err := clock.NewFormatter("Asia/Kolkata")
	if err != nil {
		t.Fatalf("NewFormatter failed: %v", err)
	}
	return NewProcessor(s, clk, formatter, 5*time.Second), clk, s
}

func TestTrackNewSessionWithoutKey(t *testing.T) {
	p, clk, _ := newTestProcessor(t)

	session, err := p.Track(context.Background(),
		domain.TrackRequest{Kind: domain.KindPageVisit, Subject: "p1"},
		domain.Origin{UserAgent: "agent-1", RemoteAddr: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if !strings.HasPrefix(session.SessionKey, "sess_") {
		t.Fatalf("expected generated session key, got %q", session.SessionKey)
	}
	if session.UserKey != "guest" {
		t.Fatalf("expected guest default, got %q", session.UserKey)
	}
	if len(session.Actions) != 1 {
		t.Fatalf("expected one action, got %d", len(session.Actions))
	}
	if !session.StartedAt.Equal(session.EndedAt) {
		t.Fatalf("expected started_at == ended_at on first event")
	}
	if !session.StartedAt.Equal(clk.now) {
		t.Fatalf("timestamp not taken from injected clock")
	}
	if session.Actions[0].OccurredAtLocal == "" {
		t.Fatalf("expected precomputed local display time")
	}
	if session.State != domain.SessionStateActive {
		t.Fatalf("expected active state, got %s", session.State)
	}
}

func TestTrackDefaultKind(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	session, err := p.Track(context.Background(), domain.TrackRequest{}, domain.Origin{})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if session.Actions[0].Kind != domain.KindPageVisit {
		t.Fatalf("expected default kind %s, got %s", domain.KindPageVisit, session.Actions[0].Kind)
	}
}

func TestTrackContinuingSession(t *testing.T) {
	p, clk, _ := newTestProcessor(t)
	ctx := context.Background()

	first, err := p.Track(ctx,
		domain.TrackRequest{Kind: domain.KindPageVisit, Subject: "p1"},
		domain.Origin{UserAgent: "agent-1", RemoteAddr: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	startedAt := first.StartedAt

	clk.Advance(30 * time.Second)
	second, err := p.Track(ctx,
		domain.TrackRequest{SessionKey: first.SessionKey, Kind: domain.KindSearch, Subject: "shoes"},
		domain.Origin{UserAgent: "agent-2", RemoteAddr: "10.0.0.2"})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if second.SessionKey != first.SessionKey {
		t.Fatalf("expected same session, got %q", second.SessionKey)
	}
	if len(second.Actions) != 2 {
		t.Fatalf("expected two actions, got %d", len(second.Actions))
	}
	if !second.StartedAt.Equal(startedAt) {
		t.Fatalf("started_at overwritten: %v != %v", second.StartedAt, startedAt)
	}
	if !second.EndedAt.Equal(clk.now) {
		t.Fatalf("ended_at not bumped to latest event time")
	}
	// Origin is captured at creation and never overwritten
	if second.UserAgent != "agent-1" || second.RemoteAddr != "10.0.0.1" {
		t.Fatalf("origin overwritten: %q %q", second.UserAgent, second.RemoteAddr)
	}
}

func TestTrackMonotonicTimestamps(t *testing.T) {
	p, clk, _ := newTestProcessor(t)
	ctx := context.Background()

	session, err := p.Track(ctx, domain.TrackRequest{Kind: domain.KindPageVisit}, domain.Origin{})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		session, err = p.Track(ctx,
			domain.TrackRequest{SessionKey: session.SessionKey, Kind: domain.KindPageVisit},
			domain.Origin{})
		if err != nil {
			t.Fatalf("Track failed: %v", err)
		}
	}

	for i := 0; i < len(session.Actions); i++ {
		at := session.Actions[i].OccurredAt
		if at.Before(session.StartedAt) || at.After(session.EndedAt) {
			t.Fatalf("action %d outside [started_at, ended_at]", i)
		}
		if i > 0 && at.Before(session.Actions[i-1].OccurredAt) {
			t.Fatalf("action %d not monotonic", i)
		}
	}
}

func TestTrackSessionEndDuration(t *testing.T) {
	p, clk, _ := newTestProcessor(t)
	ctx := context.Background()

	session, err := p.Track(ctx, domain.TrackRequest{Kind: domain.KindPageVisit}, domain.Origin{})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	clk.Advance(120 * time.Second)
	ended, err := p.Track(ctx,
		domain.TrackRequest{SessionKey: session.SessionKey, Kind: domain.KindSessionEnd},
		domain.Origin{})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if ended.State != domain.SessionStateEnded {
		t.Fatalf("expected ended state, got %s", ended.State)
	}
	if ended.DurationSeconds == nil || *ended.DurationSeconds != 120 {
		t.Fatalf("unexpected duration: %+v", ended.DurationSeconds)
	}
}

func TestTrackAfterSessionEndRejected(t *testing.T) {
	p, clk, _ := newTestProcessor(t)
	ctx := context.Background()

	session, err := p.Track(ctx, domain.TrackRequest{Kind: domain.KindSessionEnd}, domain.Origin{})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	clk.Advance(time.Second)
	_, err = p.Track(ctx,
		domain.TrackRequest{SessionKey: session.SessionKey, Kind: domain.KindPageVisit},
		domain.Origin{})
	if !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

func TestTrackIdempotentKeyResolution(t *testing.T) {
	p, clk, s := newTestProcessor(t)
	ctx := context.Background()

	const events = 5
	var last *domain.Session
	var err error
	for i := 0; i < events; i++ {
		last, err = p.Track(ctx,
			domain.TrackRequest{SessionKey: "s1", Kind: domain.KindPageVisit},
			domain.Origin{})
		if err != nil {
			t.Fatalf("Track failed: %v", err)
		}
		clk.Advance(time.Second)
	}

	if len(last.Actions) != events {
		t.Fatalf("expected %d actions, got %d", events, len(last.Actions))
	}

	sessions, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(sessions))
	}
}

func TestTrackValidation(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	long := strings.Repeat("x", maxLabelLen+1)
	_, err := p.Track(context.Background(),
		domain.TrackRequest{Kind: domain.ActionKind(long)}, domain.Origin{})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "kind" {
		t.Fatalf("unexpected field: %s", ve.Field)
	}
}

type failingStore struct{}

func (failingStore) CreateSessionIfAbsent(ctx context.Context, session *domain.Session) (bool, error) {
	return false, errors.New("store unreachable")
}

func (failingStore) GetSession(ctx context.Context, sessionKey string) (*domain.Session, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) AppendAction(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time) error {
	return errors.New("store unreachable")
}

func (failingStore) EndSession(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time, durationSeconds int64) error {
	return errors.New("store unreachable")
}

func (failingStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) Close() error { return nil }

func TestTrackPersistenceErrorPropagates(t *testing.T) {
	formatter, err := clock.NewFormatter("Asia/Kolkata")
	if err != nil {
		t.Fatalf("NewFormatter failed: %v", err)
	}
	p := NewProcessor(failingStore{}, clock.SystemClock{}, formatter, time.Second)

	_, err = p.Track(context.Background(),
		domain.TrackRequest{Kind: domain.KindPageVisit}, domain.Origin{})

	var pe *domain.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}
