package memory

import (
	"context"
	"sync"
	"time"

	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/ports"
)

// ConversationStore is an in-memory implementation of
// ports.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message // conversationID -> ordered messages
}

// NewConversationStore creates an empty in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

// CreateConversation stores a new conversation.
func (s *ConversationStore) CreateConversation(ctx context.Context, c chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.conversations[c.ID] = c
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ports.ErrNotFound
	}
	return c, nil
}

// ListConversations returns an account's conversations, newest first.
func (s *ConversationStore) ListConversations(ctx context.Context, accountID string, limit int) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Conversation
	for _, c := range s.conversations {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].UpdatedAt.After(out[j-1].UpdatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendMessage stores a message and bumps the conversation's updated
// time.
func (s *ConversationStore) AppendMessage(ctx context.Context, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)

	if c, ok := s.conversations[m.ConversationID]; ok {
		c.UpdatedAt = m.CreatedAt
		s.conversations[m.ConversationID] = c
	}
	return nil
}

// ListMessages returns a conversation's messages in creation order.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Ensure interface compliance.
var _ ports.ConversationStore = (*ConversationStore)(nil)
