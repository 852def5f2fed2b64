// Package memory persists key/value facts across chat sessions so the
// assistant can recall them later.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stanza-ai/stanza/pkg/models"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("memory: key not found")

// Store persists and retrieves memory entries.
type Store interface {
	// Remember stores or replaces the value for a key.
	Remember(ctx context.Context, key, value, category string) error
	// Recall returns the entry for a key and bumps its access count.
	Recall(ctx context.Context, key string) (models.MemoryEntry, error)
	// Forget removes a key. Removing an absent key is not an error.
	Forget(ctx context.Context, key string) error
	// List returns entries, optionally filtered by category.
	List(ctx context.Context, category string) ([]models.MemoryEntry, error)
	// Search returns entries whose key or value contains the term.
	Search(ctx context.Context, term string) ([]models.MemoryEntry, error)
	// Stats returns entry and category counts.
	Stats(ctx context.Context) (models.MemoryStats, error)
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	maxEntries int
}

const createTable = `
CREATE TABLE IF NOT EXISTS memories (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'general',
	access_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
`

// New creates a SQLiteStore and runs auto-migration. When maxEntries is
// positive, the oldest entries by update time are trimmed on insert.
func New(dbPath string, maxEntries int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate memory db: %w", err)
	}

	return &SQLiteStore{db: db, maxEntries: maxEntries}, nil
}

// Remember stores or replaces the value for a key. An existing key keeps
// its creation time and access count.
func (s *SQLiteStore) Remember(ctx context.Context, key, value, category string) error {
	if key == "" {
		return fmt.Errorf("memory: key must not be empty")
	}
	if category == "" {
		category = "general"
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (key, value, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		   category = excluded.category, updated_at = excluded.updated_at`,
		key, value, category, now, now,
	)
	if err != nil {
		return fmt.Errorf("remember: %w", err)
	}

	if s.maxEntries > 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM memories WHERE key IN (
				SELECT key FROM memories ORDER BY updated_at DESC, key
				LIMIT -1 OFFSET ?)`,
			s.maxEntries,
		)
		if err != nil {
			return fmt.Errorf("trim memories: %w", err)
		}
	}
	return nil
}

// Recall returns the entry for a key and increments its access count.
func (s *SQLiteStore) Recall(ctx context.Context, key string) (models.MemoryEntry, error) {
	var e models.MemoryEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, category, access_count, created_at, updated_at
		 FROM memories WHERE key = ?`, key,
	).Scan(&e.Key, &e.Value, &e.Category, &e.AccessCount, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MemoryEntry{}, ErrNotFound
	}
	if err != nil {
		return models.MemoryEntry{}, fmt.Errorf("recall: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1 WHERE key = ?`, key); err != nil {
		return models.MemoryEntry{}, fmt.Errorf("bump access count: %w", err)
	}
	e.AccessCount++
	return e, nil
}

// Forget removes a key.
func (s *SQLiteStore) Forget(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE key = ?`, key); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return nil
}

// List returns entries, optionally filtered by category, newest first.
func (s *SQLiteStore) List(ctx context.Context, category string) ([]models.MemoryEntry, error) {
	query := `SELECT key, value, category, access_count, created_at, updated_at FROM memories`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY updated_at DESC`

	return s.queryEntries(ctx, query, args...)
}

// Search returns entries whose key or value contains the term.
func (s *SQLiteStore) Search(ctx context.Context, term string) ([]models.MemoryEntry, error) {
	pattern := "%" + term + "%"
	return s.queryEntries(ctx,
		`SELECT key, value, category, access_count, created_at, updated_at
		 FROM memories WHERE key LIKE ? OR value LIKE ? ORDER BY updated_at DESC`,
		pattern, pattern,
	)
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var entries []models.MemoryEntry
	for rows.Next() {
		var e models.MemoryEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.Category, &e.AccessCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns entry and category counts.
func (s *SQLiteStore) Stats(ctx context.Context) (models.MemoryStats, error) {
	var st models.MemoryStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT category) FROM memories`,
	).Scan(&st.Entries, &st.Categories)
	if err != nil {
		return models.MemoryStats{}, fmt.Errorf("memory stats: %w", err)
	}
	return st, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
