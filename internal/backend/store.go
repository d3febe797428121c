package backend

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// StoreBackend is a persistent virtual filesystem over a SQLite database.
// It backs routes that must survive agent runs, such as "/memories/". Like
// StateBackend it has no execute capability.
type StoreBackend struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS files (
    path        TEXT PRIMARY KEY,
    content     BLOB NOT NULL,
    modified_at INTEGER NOT NULL
)`

// OpenStore opens (creating if needed) the store database at dbPath.
func OpenStore(dbPath string) (*StoreBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return &StoreBackend{db: db}, nil
}

// Close releases the underlying database handle.
func (s *StoreBackend) Close() error {
	return s.db.Close()
}

func (s *StoreBackend) ID() string {
	return "store"
}

func (s *StoreBackend) Read(ctx context.Context, path string) (string, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM files WHERE path = ?`, path).Scan(&content)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(content), nil
}

func (s *StoreBackend) Write(ctx context.Context, path string, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (path, content, modified_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET content = excluded.content, modified_at = excluded.modified_at`,
		path, []byte(content), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *StoreBackend) ListDir(ctx context.Context, path string) ([]DirEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, LENGTH(content) FROM files`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer rows.Close()

	sizes := map[string]int64{}
	for rows.Next() {
		var p string
		var size int64
		if err := rows.Scan(&p, &size); err != nil {
			return nil, err
		}
		sizes[p] = size
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listKeyDir(sizes, path), nil
}

func (s *StoreBackend) Glob(ctx context.Context, pattern string, root string) ([]string, error) {
	modTimes, err := s.modTimes(ctx)
	if err != nil {
		return nil, err
	}
	return globKeys(modTimes, pattern, root), nil
}

func (s *StoreBackend) Grep(ctx context.Context, pattern string, root string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile grep pattern: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, content FROM files`)
	if err != nil {
		return nil, fmt.Errorf("grep %s: %w", root, err)
	}
	defer rows.Close()

	var matches []GrepMatch
	for rows.Next() {
		var p string
		var content []byte
		if err := rows.Scan(&p, &content); err != nil {
			return nil, err
		}
		if _, ok := relativeTo(p, root); !ok && p != root {
			continue
		}
		for i, line := range strings.Split(string(content), "\n") {
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{File: p, Line: i + 1, Text: line})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortGrepMatches(matches)
	return matches, nil
}

// Delete removes a stored file. Used by maintenance commands, not by agent
// tools.
func (s *StoreBackend) Delete(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *StoreBackend) modTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, modified_at FROM files`)
	if err != nil {
		return nil, fmt.Errorf("scan store paths: %w", err)
	}
	defer rows.Close()

	modTimes := map[string]time.Time{}
	for rows.Next() {
		var p string
		var nanos int64
		if err := rows.Scan(&p, &nanos); err != nil {
			return nil, err
		}
		modTimes[p] = time.Unix(0, nanos)
	}
	return modTimes, rows.Err()
}
