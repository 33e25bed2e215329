// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/edututor-ai/backend/internal/domain/tutorsession"
)

// MemoryPath keeps everything in process memory; sessions die with the process.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS qa_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    asked_at INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_qa_history_session ON qa_history(session_id, id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check: *SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = MemoryPath
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection, so the pool must never
	// open a second one or drop the first.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Sessions
// ============================================================================

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *tutorsession.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, state, created_at, updated_at) VALUES (?, ?, ?, ?)",
		sess.ID, string(state), sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*tutorsession.Session, error) {
	var state string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM sessions WHERE id = ?", id).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess tutorsession.Session
	if err := json.Unmarshal([]byte(state), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	history, err := s.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.History = history

	return &sess, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess *tutorsession.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?",
		string(state), sess.UpdatedAt.UnixNano(), sess.ID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff := before.UnixNano()

	// First, the history of the expired sessions
	_, err = tx.ExecContext(ctx, `
		DELETE FROM qa_history
		WHERE session_id IN (SELECT id FROM sessions WHERE updated_at < ?)
	`, cutoff)
	if err != nil {
		return 0, err
	}

	// Then the sessions themselves
	result, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return deleted, tx.Commit()
}

// ============================================================================
// History
// ============================================================================

func (s *SQLiteStore) AppendHistory(ctx context.Context, sessionID string, entry tutorsession.HistoryEntry) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO qa_history (session_id, question, answer, asked_at) VALUES (?, ?, ?, ?)",
		sessionID, entry.Question, entry.Answer, entry.AskedAt.UnixNano(),
	)
	return err
}

// ListHistory returns the entries in the order they were appended.
func (s *SQLiteStore) ListHistory(ctx context.Context, sessionID string) ([]tutorsession.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT question, answer, asked_at FROM qa_history WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []tutorsession.HistoryEntry{}
	for rows.Next() {
		var (
			entry   tutorsession.HistoryEntry
			askedAt int64
		)
		if err := rows.Scan(&entry.Question, &entry.Answer, &askedAt); err != nil {
			return nil, err
		}
		entry.AskedAt = time.Unix(0, askedAt).UTC()
		history = append(history, entry)
	}
	return history, rows.Err()
}
