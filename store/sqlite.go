package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soundwave/tracker/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			user_key TEXT NOT NULL,
			user_agent TEXT,
			remote_addr TEXT,
			state TEXT NOT NULL DEFAULT 'active',
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			duration_seconds INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS actions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_key TEXT NOT NULL,
			kind TEXT NOT NULL,
			subject TEXT,
			occurred_at DATETIME NOT NULL,
			occurred_at_local TEXT,
			FOREIGN KEY (session_key) REFERENCES sessions(session_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_session ON actions(session_key, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSessionIfAbsent inserts the session unless the key already exists.
// ON CONFLICT DO NOTHING makes the find-or-create race safe: concurrent
// first-events for one key produce exactly one row.
func (s *SQLiteStore) CreateSessionIfAbsent(ctx context.Context, session *domain.Session) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_key, user_key, user_agent, remote_addr, state, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_key) DO NOTHING`,
		session.SessionKey, session.UserKey, session.UserAgent, session.RemoteAddr,
		string(session.State), session.StartedAt, session.EndedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetSession retrieves a session by key, with actions in insertion order.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionKey string) (*domain.Session, error) {
	var session domain.Session
	var state string
	var duration sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT session_key, user_key, user_agent, remote_addr, state, started_at, ended_at, duration_seconds
		 FROM sessions WHERE session_key = ?`, sessionKey).
		Scan(&session.SessionKey, &session.UserKey, &session.UserAgent, &session.RemoteAddr,
			&state, &session.StartedAt, &session.EndedAt, &duration)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.State = domain.SessionState(state)
	if duration.Valid {
		session.DurationSeconds = &duration.Int64
	}

	actions, err := s.getActions(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	session.Actions = actions
	return &session, nil
}

func (s *SQLiteStore) getActions(ctx context.Context, sessionKey string) ([]domain.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, subject, occurred_at, occurred_at_local
		 FROM actions WHERE session_key = ? ORDER BY seq ASC`, sessionKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []domain.Action{}
	for rows.Next() {
		var a domain.Action
		var kind string
		var subject, local sql.NullString
		if err := rows.Scan(&kind, &subject, &a.OccurredAt, &local); err != nil {
			return nil, err
		}
		a.Kind = domain.ActionKind(kind)
		a.Subject = subject.String
		a.OccurredAtLocal = local.String
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// AppendAction appends an action and bumps ended_at in one transaction.
func (s *SQLiteStore) AppendAction(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertAction(ctx, tx, sessionKey, action); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET ended_at = ? WHERE session_key = ?`, endedAt, sessionKey)
		return err
	})
}

// EndSession appends the terminating action and closes the session.
func (s *SQLiteStore) EndSession(ctx context.Context, sessionKey string, action *domain.Action, endedAt time.Time, durationSeconds int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertAction(ctx, tx, sessionKey, action); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET ended_at = ?, state = ?, duration_seconds = ? WHERE session_key = ?`,
			endedAt, string(domain.SessionStateEnded), durationSeconds, sessionKey)
		return err
	})
}

func insertAction(ctx context.Context, tx *sql.Tx, sessionKey string, action *domain.Action) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO actions (session_key, kind, subject, occurred_at, occurred_at_local)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionKey, string(action.Kind), action.Subject, action.OccurredAt, action.OccurredAtLocal)
	return err
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListSessions returns sessions sorted by started_at descending.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	query := `SELECT session_key, user_key, user_agent, remote_addr, state, started_at, ended_at, duration_seconds
		 FROM sessions ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		var state string
		var duration sql.NullInt64
		if err := rows.Scan(&session.SessionKey, &session.UserKey, &session.UserAgent,
			&session.RemoteAddr, &state, &session.StartedAt, &session.EndedAt, &duration); err != nil {
			return nil, err
		}
		session.State = domain.SessionState(state)
		if duration.Valid {
			session.DurationSeconds = &duration.Int64
		}
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
