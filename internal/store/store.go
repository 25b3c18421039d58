// Package store persists sessions and analyzed moments in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when an operation references a
// session id the database has never seen.
var ErrSessionNotFound = errors.New("session not found")

// Session is one tracked work period.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time // nil while the session is active
}

// Active reports whether the session has not been ended.
func (s Session) Active() bool { return s.EndedAt == nil }

// Moment is one fused, classified sample: the focus verdict, the
// screen context it was paired with, and the model labels.
type Moment struct {
	ID        int64
	SessionID string
	Timestamp time.Time

	FocusStatus    string
	FocusReason    string
	DistractionPct float64
	Emotion        string

	AppName     string
	WindowTitle string
	URL         string
	OCRText     string

	Service      string
	Productivity string

	// UserFeedback is the label correction a user supplied after the
	// fact; IsReviewed marks the row as human-checked.
	UserFeedback string
	IsReviewed   bool
}

// Store manages focusd persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// CreateSession inserts a new active session.
func (s *Store) CreateSession(ctx context.Context, id string, startedAt time.Time) (Session, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		id, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return Session{ID: id, StartedAt: startedAt.UTC()}, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ActiveSession returns the most recent session without an end time.
func (s *Store) ActiveSession(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at FROM sessions
		 WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("active session: %w", err)
	}
	return sess, nil
}

// InsertMoment appends one analyzed moment to the activity log.
func (s *Store) InsertMoment(ctx context.Context, m Moment) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (
			session_id, timestamp, focus_status, focus_reason, distraction_pct,
			emotion, app_name, window_title, url, ocr_text, service,
			productivity_label, user_feedback, is_reviewed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.Timestamp.UTC().Format(time.RFC3339Nano),
		m.FocusStatus, m.FocusReason, m.DistractionPct,
		m.Emotion, m.AppName, m.WindowTitle, m.URL, m.OCRText, m.Service,
		m.Productivity, m.UserFeedback, boolToInt(m.IsReviewed),
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("insert moment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// MomentsBySession returns a session's moments in timestamp order.
func (s *Store) MomentsBySession(ctx context.Context, sessionID string) ([]Moment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, timestamp, focus_status, focus_reason,
			distraction_pct, emotion, app_name, window_title, url, ocr_text,
			service, productivity_label, user_feedback, is_reviewed
		 FROM activity_log WHERE session_id = ? ORDER BY timestamp ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query moments: %w", err)
	}
	defer rows.Close()

	var out []Moment
	for rows.Next() {
		var m Moment
		var ts string
		var reviewed int
		if err := rows.Scan(&m.ID, &m.SessionID, &ts, &m.FocusStatus,
			&m.FocusReason, &m.DistractionPct, &m.Emotion, &m.AppName,
			&m.WindowTitle, &m.URL, &m.OCRText, &m.Service, &m.Productivity,
			&m.UserFeedback, &reviewed); err != nil {
			return nil, fmt.Errorf("scan moment: %w", err)
		}
		m.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse moment timestamp: %w", err)
		}
		m.IsReviewed = reviewed != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetFeedback records a user's label correction and marks the moment
// reviewed.
func (s *Store) SetFeedback(ctx context.Context, momentID int64, feedback string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activity_log SET user_feedback = ?, is_reviewed = 1 WHERE id = ?`,
		feedback, momentID,
	)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set feedback rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("moment %d not found", momentID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var started string
	var ended sql.NullString
	if err := row.Scan(&s.ID, &started, &ended); err != nil {
		return Session{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	s.StartedAt = t
	if ended.Valid {
		e, err := time.Parse(time.RFC3339Nano, ended.String)
		if err != nil {
			return Session{}, fmt.Errorf("parse ended_at: %w", err)
		}
		s.EndedAt = &e
	}
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	// modernc sqlite exposes the primary result code; 787 is
	// SQLITE_CONSTRAINT_FOREIGNKEY, 19 the generic constraint code.
	if errors.As(err, &coder) {
		switch coder.Code() {
		case 19, 787:
			return true
		}
	}
	return false
}
