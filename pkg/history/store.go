// Package history persists chat conversations and their turns so past
// sessions can be reviewed and resumed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stanza-ai/stanza/pkg/models"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("history: conversation not found")

// Store persists conversations and turns.
type Store interface {
	// StartConversation creates a new conversation.
	StartConversation(ctx context.Context, title string) (models.Conversation, error)
	// AppendTurn stores a turn and updates the conversation counters.
	AppendTurn(ctx context.Context, turn models.Turn) error
	// Conversations returns recent conversations, newest activity first.
	Conversations(ctx context.Context, limit int) ([]models.Conversation, error)
	// Turns returns all turns of a conversation in order.
	Turns(ctx context.Context, conversationID string) ([]models.Turn, error)
	// Delete removes a conversation and its turns.
	Delete(ctx context.Context, conversationID string) error
	// Clear removes all conversations and turns.
	Clear(ctx context.Context) error
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createConversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	last_activity DATETIME NOT NULL,
	turn_count INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0
);
`

const createTurnsTable = `
CREATE TABLE IF NOT EXISTS turns (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'live',
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, created_at);
`

// New creates a SQLiteStore and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(createConversationsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate conversations table: %w", err)
	}
	if _, err := db.Exec(createTurnsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate turns table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// StartConversation creates a new conversation with a generated ID.
func (s *SQLiteStore) StartConversation(ctx context.Context, title string) (models.Conversation, error) {
	now := time.Now().UTC()
	conv := models.Conversation{
		ID:           uuid.NewString(),
		Title:        title,
		StartedAt:    now,
		LastActivity: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, started_at, last_activity) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.StartedAt, conv.LastActivity,
	)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("start conversation: %w", err)
	}
	return conv, nil
}

// AppendTurn stores a turn and updates the conversation counters. The
// turn gets a generated ID and timestamp if missing.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn models.Turn) error {
	if turn.ConversationID == "" {
		return fmt.Errorf("history: turn needs a conversation id")
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.Source == "" {
		turn.Source = "live"
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_activity = ?, turn_count = turn_count + 1,
		 total_tokens = total_tokens + ? WHERE id = ?`,
		turn.CreatedAt, turn.TotalTokens, turn.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("update conversation counters: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (id, conversation_id, role, content, source,
		 prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, turn.Role, turn.Content, turn.Source,
		turn.PromptTokens, turn.CompletionTokens, turn.TotalTokens, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Conversations returns recent conversations, newest activity first.
func (s *SQLiteStore) Conversations(ctx context.Context, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, started_at, last_activity, turn_count, total_tokens
		 FROM conversations ORDER BY last_activity DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.StartedAt, &c.LastActivity, &c.TurnCount, &c.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Turns returns all turns of a conversation in chronological order.
func (s *SQLiteStore) Turns(ctx context.Context, conversationID string) ([]models.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, source,
		 prompt_tokens, completion_tokens, total_tokens, created_at
		 FROM turns WHERE conversation_id = ? ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var tn models.Turn
		if err := rows.Scan(&tn.ID, &tn.ConversationID, &tn.Role, &tn.Content, &tn.Source,
			&tn.PromptTokens, &tn.CompletionTokens, &tn.TotalTokens, &tn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, tn)
	}
	return turns, rows.Err()
}

// Delete removes a conversation and its turns.
func (s *SQLiteStore) Delete(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM turns WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes all conversations and turns.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns`); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
