package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/adapters/metrics"
	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/domain/profile"
	"github.com/caregate/caregate/domain/quota"
	"github.com/caregate/caregate/ports"
)

// ErrQuotaExceeded is returned when the account's monthly allowance
// is exhausted.
var ErrQuotaExceeded = errors.New("monthly question allowance exhausted")

// historyWindow is how many prior messages are sent to the assistant
// as conversation context.
const historyWindow = 10

// ChatService runs the metered question path: validate, take one
// allowance slot, ask the assistant, persist the exchange. The slot is
// taken before the assistant call so a slow answer can't be raced past
// the limit, and returned if the assistant fails so the patient isn't
// charged for an answer they never got.
type ChatService struct {
	conversations ports.ConversationStore
	profiles      ports.ProfileStore
	assistant     ports.Assistant
	ledger        *LedgerService
	idGen         ports.IDGenerator
	clock         ports.Clock
	metrics       *metrics.Collector
	logger        zerolog.Logger
}

// NewChatService creates a chat service.
func NewChatService(
	conversations ports.ConversationStore,
	profiles ports.ProfileStore,
	assistant ports.Assistant,
	ledger *LedgerService,
	idGen ports.IDGenerator,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		profiles:      profiles,
		assistant:     assistant,
		ledger:        ledger,
		idGen:         idGen,
		clock:         clock,
		metrics:       m,
		logger:        logger,
	}
}

// SendResult is the outcome of a successful Send.
type SendResult struct {
	ConversationID string
	Question       chat.Message
	Answer         chat.Message
	Quota          quota.CheckResult
}

// Send asks one question. When conversationID is empty a new
// conversation is started, titled from the question. Returns
// ErrQuotaExceeded without contacting the assistant when the
// allowance is exhausted.
func (s *ChatService) Send(ctx context.Context, accountID, conversationID, question string) (SendResult, error) {
	if err := chat.ValidateQuestion(question); err != nil {
		return SendResult{}, err
	}

	check, err := s.ledger.ConsumeIfAvailable(ctx, accountID)
	if err != nil {
		return SendResult{}, err
	}
	if !check.Allowed {
		return SendResult{Quota: check}, ErrQuotaExceeded
	}

	// The slot is held from here on. The patient pays for answers,
	// not for failures.
	conv, history, err := s.resolveConversation(ctx, accountID, conversationID, question)
	if err != nil {
		s.release(ctx, accountID)
		return SendResult{}, err
	}

	answer, err := s.ask(ctx, accountID, conv.ID, question, history)
	if err != nil {
		s.release(ctx, accountID)
		return SendResult{}, err
	}

	now := s.clock.Now().UTC()
	questionMsg := chat.Message{
		ID:             s.idGen.New(),
		ConversationID: conv.ID,
		Role:           chat.RoleUser,
		Content:        question,
		CreatedAt:      now,
	}
	answerMsg := chat.Message{
		ID:             s.idGen.New(),
		ConversationID: conv.ID,
		Role:           chat.RoleAssistant,
		Content:        answer.Content,
		Citations:      answer.Citations,
		CreatedAt:      now,
	}

	if err := s.conversations.AppendMessage(ctx, questionMsg); err != nil {
		return SendResult{}, err
	}
	if err := s.conversations.AppendMessage(ctx, answerMsg); err != nil {
		return SendResult{}, err
	}

	return SendResult{
		ConversationID: conv.ID,
		Question:       questionMsg,
		Answer:         answerMsg,
		Quota:          check,
	}, nil
}

func (s *ChatService) release(ctx context.Context, accountID string) {
	if err := s.ledger.ReleaseConsumption(ctx, accountID); err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Msg("failed to release slot after send failure")
	}
}

// resolveConversation loads an existing conversation (verifying
// ownership) or creates a new one titled from the question.
func (s *ChatService) resolveConversation(ctx context.Context, accountID, conversationID, question string) (chat.Conversation, []chat.Message, error) {
	if conversationID == "" {
		now := s.clock.Now().UTC()
		conv := chat.Conversation{
			ID:        s.idGen.New(),
			AccountID: accountID,
			Title:     chat.TitleFromQuestion(question),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.conversations.CreateConversation(ctx, conv); err != nil {
			return chat.Conversation{}, nil, err
		}
		return conv, nil, nil
	}

	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return chat.Conversation{}, nil, err
	}
	if conv.AccountID != accountID {
		return chat.Conversation{}, nil, ports.ErrNotFound
	}

	history, err := s.conversations.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return chat.Conversation{}, nil, err
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	return conv, history, nil
}

// ask calls the assistant with profile context attached when a
// profile exists.
func (s *ChatService) ask(ctx context.Context, accountID, conversationID, question string, history []chat.Message) (ports.AssistantAnswer, error) {
	var profileContext string
	p, err := s.profiles.Get(ctx, accountID)
	if err == nil {
		profileContext = profile.ContextSummary(p, s.clock.Now())
	} else if !errors.Is(err, ports.ErrNotFound) {
		return ports.AssistantAnswer{}, err
	}

	started := time.Now()
	answer, err := s.assistant.Ask(ctx, ports.AssistantRequest{
		AccountID:      accountID,
		ConversationID: conversationID,
		Question:       question,
		ProfileContext: profileContext,
		History:        history,
	})

	if s.metrics != nil {
		s.metrics.AssistantDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			s.metrics.AssistantErrors.WithLabelValues("ask").Inc()
		}
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("conversation_id", conversationID).
			Msg("assistant request failed")
		return ports.AssistantAnswer{}, err
	}
	return answer, nil
}

// ListConversations returns the account's conversations, newest first.
func (s *ChatService) ListConversations(ctx context.Context, accountID string, limit int) ([]chat.Conversation, error) {
	return s.conversations.ListConversations(ctx, accountID, limit)
}

// Messages returns a conversation's messages after verifying the
// conversation belongs to the account.
func (s *ChatService) Messages(ctx context.Context, accountID, conversationID string, limit int) ([]chat.Message, error) {
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.AccountID != accountID {
		return nil, ports.ErrNotFound
	}
	return s.conversations.ListMessages(ctx, conversationID, limit)
}
