// Package chat provides conversation and message value types and pure
// validation.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Question validation failures.
var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrQuestionTooLong = errors.New("question too long")
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxQuestionLength bounds a single user question. Longer inputs are
// rejected before any quota is consumed.
const MaxQuestionLength = 4000

// Citation points at a source the assistant grounded its answer on:
// either a knowledge-base article or one of the patient's own uploaded
// documents.
type Citation struct {
	Source  string // "knowledge_base" or "document"
	Ref     string // article slug or document ID
	Title   string
	Snippet string
}

// Message represents one chat message (value type).
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	Citations      []Citation
	CreatedAt      time.Time
}

// Conversation groups messages for one account.
type Conversation struct {
	ID        string
	AccountID string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateQuestion checks a user question before it is metered or
// forwarded. This is a PURE function.
func ValidateQuestion(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyQuestion
	}
	if len(content) > MaxQuestionLength {
		return fmt.Errorf("%w (%d > %d)", ErrQuestionTooLong, len(content), MaxQuestionLength)
	}
	return nil
}

// TitleFromQuestion derives a conversation title from its opening
// question. This is a PURE function.
func TitleFromQuestion(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	const max = 60
	if runes := []rune(title); len(runes) > max {
		title = strings.TrimRight(string(runes[:max]), " ") + "…"
	}
	return title
}
