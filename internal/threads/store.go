// Package threads persists conversation threads in a SQLite database so runs
// can be resumed and inspected later.
package threads

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Thread summarizes a stored conversation.
type Thread struct {
	ID           string
	Agent        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message is a stored conversation message.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store owns the thread database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
    id         TEXT PRIMARY KEY,
    agent      TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
    thread_id  TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (thread_id, seq)
)`

// Open opens (creating if needed) the thread database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open threads db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init threads schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewThreadID returns a fresh short thread id, eight hex characters.
func NewThreadID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Create registers a new thread.
func (s *Store) Create(ctx context.Context, id string, agent string) error {
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, agent, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, agent, now, now,
	)
	if err != nil {
		return fmt.Errorf("create thread %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a thread id is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM threads WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check thread %s: %w", id, err)
	}
	return true, nil
}

// List returns threads newest first. A zero limit means all; a non-empty
// agent filters by agent name.
func (s *Store) List(ctx context.Context, limit int, agent string) ([]Thread, error) {
	query := `
		SELECT t.id, t.agent, t.created_at, t.updated_at, COUNT(m.seq)
		FROM threads t LEFT JOIN messages m ON m.thread_id = t.id`
	var args []any
	if agent != "" {
		query += ` WHERE t.agent = ?`
		args = append(args, agent)
	}
	query += ` GROUP BY t.id ORDER BY t.updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var t Thread
		var created, updated int64
		if err := rows.Scan(&t.ID, &t.Agent, &created, &updated, &t.MessageCount); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(0, created)
		t.UpdatedAt = time.Unix(0, updated)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// MostRecent returns the id of the most recently updated thread, or "" when
// no threads exist.
func (s *Store) MostRecent(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM threads ORDER BY updated_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("most recent thread: %w", err)
	}
	return id, nil
}

// FindSimilar returns thread ids starting with the given prefix, used to
// resolve abbreviated ids and to suggest alternatives on a miss.
func (s *Store) FindSimilar(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM threads WHERE id LIKE ? ORDER BY updated_at DESC`,
		prefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find threads like %s: %w", prefix, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a thread and its messages. Deleting an unknown id is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, id); err != nil {
		return fmt.Errorf("delete thread messages %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	return nil
}

// AppendMessage stores a message at the end of a thread and bumps the
// thread's updated_at.
func (s *Store) AppendMessage(ctx context.Context, threadID string, role string, content string) error {
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (thread_id, seq, role, content, created_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE thread_id = ?), ?, ?, ?)`,
		threadID, threadID, role, content, now,
	)
	if err != nil {
		return fmt.Errorf("append message to %s: %w", threadID, err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE threads SET updated_at = ? WHERE id = ?`, now, threadID)
	if err != nil {
		return fmt.Errorf("touch thread %s: %w", threadID, err)
	}
	return nil
}

// Messages returns a thread's messages in insertion order.
func (s *Store) Messages(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages WHERE thread_id = ? ORDER BY seq`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages %s: %w", threadID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var created int64
		if err := rows.Scan(&m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(0, created)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// FormatTimestamp renders a thread timestamp for listings.
func FormatTimestamp(t time.Time) string {
	return t.Format("Jan 02, 3:04pm")
}
