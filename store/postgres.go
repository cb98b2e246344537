package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundwave/tracker/domain"
)

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects the pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			user_key TEXT NOT NULL,
			user_agent TEXT,
			remote_addr TEXT,
			state TEXT NOT NULL DEFAULT 'active',
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			duration_seconds BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS actions (
			seq BIGSERIAL PRIMARY KEY,
			session_key TEXT NOT NULL REFERENCES sessions(session_key),
			kind TEXT NOT NULL,
			subject TEXT,
			occurred_at TIMESTAMPTZ NOT NULL,
			occurred_at_local TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_session ON actions(session_key, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateSessionIfAbsent inserts the session with ON CONFLICT DO NOTHING.
func (s *PostgresStore) CreateSessionIfAbsent(ctx context.Context, session *domain.Session) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_key, user_key, user_agent, remote_addr, state, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_key) DO NOTHING`,
		session.SessionKey, session.UserKey, session.UserAgent, session.RemoteAddr,
		string(session.State), session.StartedAt, session.EndedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetSession retrieves a session by key, with actions in insertion order.
func (s *PostgresStore) GetSession(ctx context.Context, sessionKey string) (*domain.Session, error) {
	var session domain.Session
	var state string
	var userAgent, remoteAddr *string
	var duration *int64
	err := s.pool.QueryRow(ctx,
		`SELECT session_key, user_key, user_agent, remote_addr, state, started_at, ended_at, duration_seconds
		 FROM sessions WHERE session_key = $1`, sessionKey).
		Scan(&session.SessionKey, &session.UserKey, &userAgent, &remoteAddr,
			&state, &session.StartedAt, &session.EndedAt, &duration)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if userAgent != nil {
		session.UserAgent = *userAgent
	}
	if remoteAddr != nil {
		session.RemoteAddr = *remoteAddr
	}
	session.State = domain.SessionState(state)
	session.DurationSeconds = duration

	actions, err := s.getActions(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	session.Actions = actions
	return &session, nil
}

func (s *PostgresStore) getActions(ctx context.Context, sessionKey string) ([]domain.Action, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT kind, subject, occurred_at, occurred_at_local
		 FROM actions WHERE session_key = $1 ORDER BY seq ASC`, sessionKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []domain.Action{}
	for rows.Next() {
		var a domain.Action
		var kind string
		var subject, local *string
		if err := rows.Scan(&kind, &subject, &a.OccurredAt, &local); err != nil {
			return nil, err
		}
		a.Kind = domain.ActionKind(kind)
		if subject != nil {
			a.Subject = *subject
		}
		if local != nil {
			a.OccurredAtLocal = *local
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// AppendAction appends an action and bumps ended_at in one transaction.
func (s *PostgresStore) AppendAction(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertActionPg(ctx, tx, sessionKey, action); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE sessions SET ended_at = $1 WHERE session_key = $2`, endedAt, sessionKey)
		return err
	})
}

// EndSession appends the terminating action and closes the session.
func (s *PostgresStore) EndSession(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time, durationSeconds int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertActionPg(ctx, tx, sessionKey, action); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE sessions SET ended_at = $1, state = $2, duration_seconds = $3 WHERE session_key = $4`,
			endedAt, string(domain.SessionStateEnded), durationSeconds, sessionKey)
		return err
	})
}

func insertActionPg(ctx context.Context, tx pgx.Tx, sessionKey string, action *domain.Action) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO actions (session_key, kind, subject, occurred_at, occurred_at_local)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionKey, string(action.Kind), action.Subject, action.OccurredAt, action.OccurredAtLocal)
	return err
}

// ListSessions returns sessions sorted by started_at descending.
func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	query := `SELECT session_key, user_key, user_agent, remote_addr, state, started_at, ended_at, duration_seconds
		 FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		var state string
		var userAgent, remoteAddr *string
		var duration *int64
		if err := rows.Scan(&session.SessionKey, &session.UserKey, &userAgent, &remoteAddr,
			&state, &session.StartedAt, &session.EndedAt, &duration); err != nil {
			return nil, err
		}
		if userAgent != nil {
			session.UserAgent = *userAgent
		}
		if remoteAddr != nil {
			session.RemoteAddr = *remoteAddr
		}
		session.State = domain.SessionState(state)
		session.DurationSeconds = duration
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		actions, err := s.getActions(ctx, sessions[i].SessionKey)
		if err != nil {
			return nil, err
		}
		sessions[i].Actions = actions
	}
	return sessions, nil
}
