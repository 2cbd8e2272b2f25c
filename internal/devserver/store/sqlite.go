// Package store persists chat sessions and transcripts for the
// development backend in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
)

// ErrSessionNotFound reports an operation against an id the store
// does not hold.
var ErrSessionNotFound = errors.New("session not found")

// SQLiteStore is the chat storage backing the development server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and if necessary creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode keeps concurrent readers cheap.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		latest_message_preview TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListSessions returns every session, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, latest_message_preview, created_at
		FROM chat_sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0, 16)
	for rows.Next() {
		var sess chat.Session
		var createdAt int64
		if err := rows.Scan(&sess.ID, &sess.LatestMessagePreview, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.CreatedAt = time.Unix(createdAt, 0).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CreateSession provisions a new empty session.
func (s *SQLiteStore) CreateSession(ctx context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, latest_message_preview, created_at)
		VALUES (?, '', ?)`,
		session.ID, session.CreatedAt.Unix())
	if err != nil {
		return chat.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session and its transcript.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	// Cascade is not guaranteed without foreign_keys pragma; delete
	// explicitly.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session messages: %w", err)
	}
	return nil
}

// ListMessages returns a session's transcript in insertion order. A
// session with no messages yields an empty slice, not an error.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := s.sessionExists(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer FROM chat_messages
		WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.Question, &msg.Answer); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendMessage persists one turn and refreshes the session preview.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	if err := s.sessionExists(ctx, sessionID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, msg.Question, msg.Answer, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chat_sessions SET latest_message_preview = ? WHERE id = ?`,
		msg.Preview(), sessionID)
	if err != nil {
		return fmt.Errorf("update session preview: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) sessionExists(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM chat_sessions WHERE id = ?`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	return nil
}
