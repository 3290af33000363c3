package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/ports"
)

// ConversationStore implements ports.ConversationStore using SQLite.
// Citations are stored as a JSON text column on the message row.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new SQLite conversation store.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// CreateConversation stores a new conversation.
func (s *ConversationStore) CreateConversation(ctx context.Context, c chat.Conversation) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, account_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.AccountID, c.Title, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetConversation retrieves a conversation by ID.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, title, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id)

	var c chat.Conversation
	err := row.Scan(&c.ID, &c.AccountID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, ports.ErrNotFound
	}
	if err != nil {
		return chat.Conversation{}, err
	}
	return c, nil
}

// ListConversations returns an account's conversations, newest first.
func (s *ConversationStore) ListConversations(ctx context.Context, accountID string, limit int) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, title, created_at, updated_at
		FROM conversations
		WHERE account_id = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []chat.Conversation
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// AppendMessage stores a message and bumps the conversation's updated
// time.
func (s *ConversationStore) AppendMessage(ctx context.Context, m chat.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	citations := m.Citations
	if citations == nil {
		citations = []chat.Citation{}
	}
	encoded, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("encode citations: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, citations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ConversationID, m.Role, m.Content, string(encoded), m.CreatedAt); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, m.CreatedAt, m.ConversationID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// ListMessages returns a conversation's messages in creation order.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, citations, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var m chat.Message
		var citations string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &citations, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(citations), &m.Citations); err != nil {
			return nil, fmt.Errorf("decode citations: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Ensure interface compliance.
var _ ports.ConversationStore = (*ConversationStore)(nil)
