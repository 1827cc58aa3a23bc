package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uxlens/uxlens/internal/domain/model"
	"github.com/uxlens/uxlens/pkg/metrics"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

const defaultBusyTimeoutMS = 5000

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db            *sql.DB
	busyTimeoutMS int
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeoutMS: defaultBusyTimeoutMS,
	}
	for _, opt := range opts {
		opt(s)
	}

	// WAL + busy timeout to avoid "database is locked" under concurrent
	// ingest and report reads. modernc takes pragmas via _pragma=name(value).
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, s.busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events(
	  event_id   TEXT PRIMARY KEY,
	  session_id TEXT NOT NULL,
	  run_id     TEXT NOT NULL,
	  block_id   TEXT NOT NULL,
	  screen_id  TEXT,
	  event_type TEXT NOT NULL CHECK (length(event_type) > 0),
	  ts_utc     INTEGER NOT NULL,
	  x          REAL,
	  y          REAL,
	  hotspot_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_events_block   ON events(block_id);
	CREATE INDEX IF NOT EXISTS idx_events_screen  ON events(block_id, screen_id);

	CREATE TABLE IF NOT EXISTS sessions(
	  id         TEXT PRIMARY KEY,
	  run_id     TEXT NOT NULL,
	  block_id   TEXT NOT NULL,
	  started_at INTEGER,
	  completed  INTEGER NOT NULL DEFAULT 0,
	  aborted    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_block ON sessions(block_id);

	CREATE TABLE IF NOT EXISTS answers(
	  answer_id  TEXT PRIMARY KEY,
	  session_id TEXT NOT NULL,
	  run_id     TEXT NOT NULL,
	  block_id   TEXT NOT NULL,
	  value      INTEGER NOT NULL,
	  ts_utc     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_answers_block ON answers(block_id);

	CREATE TABLE IF NOT EXISTS gaze(
	  session_id TEXT NOT NULL,
	  run_id     TEXT NOT NULL,
	  block_id   TEXT NOT NULL,
	  screen_id  TEXT NOT NULL,
	  ts_utc     INTEGER NOT NULL,
	  x_norm     REAL NOT NULL,
	  y_norm     REAL NOT NULL,
	  PRIMARY KEY (session_id, screen_id, ts_utc)
	);
	CREATE INDEX IF NOT EXISTS idx_gaze_screen ON gaze(block_id, screen_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertEvents writes a batch in one transaction. Rows whose event id is
// already present are skipped, keeping retried uploads idempotent.
func (s *SQLiteStore) InsertEvents(ctx context.Context, events []model.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO events
		(event_id, session_id, run_id, block_id, screen_id, event_type, ts_utc, x, y, hotspot_id)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		if err := ValidateEvent(e); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("invalid event: %w", err)
		}
		var x, y any
		if e.X != nil {
			x = *e.X
		}
		if e.Y != nil {
			y = *e.Y
		}
		if _, err := stmt.ExecContext(ctx, e.EventID, e.SessionID, e.RunID, e.BlockID,
			nullableString(e.ScreenID), string(e.Type), e.TS.UnixMilli(), x, y,
			nullableString(e.HotspotID)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertSessions upserts session rows; a session's stored flags may be
// updated by a later upload.
func (s *SQLiteStore) InsertSessions(ctx context.Context, sessions []model.Session) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO sessions
		(id, run_id, block_id, started_at, completed, aborted) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range sessions {
		sess := &sessions[i]
		var startedAt any
		if !sess.StartedAt.IsZero() {
			startedAt = sess.StartedAt.UnixMilli()
		}
		if _, err := stmt.ExecContext(ctx, sess.ID, sess.RunID, sess.BlockID,
			startedAt, boolToInt(sess.StoredCompleted), boolToInt(sess.StoredAborted)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert session: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertAnswers writes survey answers, idempotent on answer id.
func (s *SQLiteStore) InsertAnswers(ctx context.Context, answers []model.Answer) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO answers
		(answer_id, session_id, run_id, block_id, value, ts_utc) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range answers {
		a := &answers[i]
		if _, err := stmt.ExecContext(ctx, a.AnswerID, a.SessionID, a.RunID,
			a.BlockID, a.Value, a.TS.UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert answer: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertGaze writes gaze samples, idempotent on (session, screen, ts).
func (s *SQLiteStore) InsertGaze(ctx context.Context, samples []model.GazeSample) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO gaze
		(session_id, run_id, block_id, screen_id, ts_utc, x_norm, y_norm) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range samples {
		g := &samples[i]
		if _, err := stmt.ExecContext(ctx, g.SessionID, g.RunID, g.BlockID,
			g.ScreenID, g.TS.UnixMilli(), g.XNorm, g.YNorm); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert gaze sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const selectEvents = `SELECT event_id, session_id, run_id, block_id,
	COALESCE(screen_id, ''), event_type, ts_utc, x, y, COALESCE(hotspot_id, '')
	FROM events `

// EventsBySession returns every event for one session.
func (s *SQLiteStore) EventsBySession(ctx context.Context, sessionID string) ([]model.Event, error) {
	return s.queryEvents(ctx, selectEvents+`WHERE session_id = ? ORDER BY ts_utc, event_id`, sessionID)
}

// EventsByBlock returns every event for one block across all sessions.
func (s *SQLiteStore) EventsByBlock(ctx context.Context, blockID string) ([]model.Event, error) {
	return s.queryEvents(ctx, selectEvents+`WHERE block_id = ? ORDER BY ts_utc, event_id`, blockID)
}

// EventsByScreen returns a block's events for one screen.
func (s *SQLiteStore) EventsByScreen(ctx context.Context, blockID, screenID string) ([]model.Event, error) {
	return s.queryEvents(ctx, selectEvents+`WHERE block_id = ? AND screen_id = ? ORDER BY ts_utc, event_id`, blockID, screenID)
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var eventType string
		var tsUTC int64
		var x, y sql.NullFloat64
		if err := rows.Scan(&e.EventID, &e.SessionID, &e.RunID, &e.BlockID,
			&e.ScreenID, &eventType, &tsUTC, &x, &y, &e.HotspotID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = model.EventType(eventType)
		e.TS = time.UnixMilli(tsUTC).UTC()
		if x.Valid {
			e.X = &x.Float64
		}
		if y.Valid {
			e.Y = &y.Float64
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// SessionsByBlock returns every session row for one block.
func (s *SQLiteStore) SessionsByBlock(ctx context.Context, blockID string) ([]model.Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, block_id, started_at, completed, aborted FROM sessions WHERE block_id = ? ORDER BY started_at, id`, blockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var startedAt sql.NullInt64
		var completed, aborted int
		if err := rows.Scan(&sess.ID, &sess.RunID, &sess.BlockID, &startedAt, &completed, &aborted); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if startedAt.Valid {
			sess.StartedAt = time.UnixMilli(startedAt.Int64).UTC()
		}
		sess.StoredCompleted = completed != 0
		sess.StoredAborted = aborted != 0
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}

// AnswersByBlock returns every answer row for one block.
func (s *SQLiteStore) AnswersByBlock(ctx context.Context, blockID string) ([]model.Answer, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx,
		`SELECT answer_id, session_id, run_id, block_id, value, ts_utc FROM answers WHERE block_id = ? ORDER BY ts_utc, answer_id`, blockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var tsUTC int64
		if err := rows.Scan(&a.AnswerID, &a.SessionID, &a.RunID, &a.BlockID, &a.Value, &tsUTC); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		a.TS = time.UnixMilli(tsUTC).UTC()
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return answers, nil
}

// GazeByScreen returns a block's gaze samples for one screen, time-ordered.
func (s *SQLiteStore) GazeByScreen(ctx context.Context, blockID, screenID string) ([]model.GazeSample, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, run_id, block_id, screen_id, ts_utc, x_norm, y_norm
		 FROM gaze WHERE block_id = ? AND screen_id = ? ORDER BY ts_utc, session_id`, blockID, screenID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gaze samples: %w", err)
	}
	defer rows.Close()

	var samples []model.GazeSample
	for rows.Next() {
		var g model.GazeSample
		var tsUTC int64
		if err := rows.Scan(&g.SessionID, &g.RunID, &g.BlockID, &g.ScreenID, &tsUTC, &g.XNorm, &g.YNorm); err != nil {
			return nil, fmt.Errorf("failed to scan gaze sample: %w", err)
		}
		g.TS = time.UnixMilli(tsUTC).UTC()
		samples = append(samples, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gaze samples: %w", err)
	}
	return samples, nil
}

// CountEvents returns the total number of stored events.
func (s *SQLiteStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
