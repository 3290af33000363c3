// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/domain/profile"
	"github.com/caregate/caregate/domain/usage"
)

// ErrNotFound is returned by stores when an entity does not exist.
// A single sentinel shared by every adapter so callers can test with
// errors.Is regardless of the backing store.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher provides password hashing.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// Account represents a patient account.
type Account struct {
	ID            string
	Email         string
	PasswordHash  []byte
	Name          string
	Tier          string    // "free", "pro", "premium"; anything else coerces to free
	BillingAnchor time.Time // defines the monthly rollover day; defaults to CreatedAt
	StripeID      string
	Status        string // "active", "suspended", "cancelled"
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccountStore persists patient accounts.
type AccountStore interface {
	// Get retrieves an account by ID.
	Get(ctx context.Context, id string) (Account, error)

	// GetByEmail retrieves an account by email.
	GetByEmail(ctx context.Context, email string) (Account, error)

	// GetByStripeID retrieves an account by payment-provider customer ID.
	GetByStripeID(ctx context.Context, stripeID string) (Account, error)

	// Create stores a new account.
	Create(ctx context.Context, a Account) error

	// Update modifies an existing account.
	Update(ctx context.Context, a Account) error

	// List returns accounts with pagination.
	List(ctx context.Context, limit, offset int) ([]Account, error)

	// Count returns total account count.
	Count(ctx context.Context) (int, error)
}

// UsageStore persists per-period consumption counters.
// Uniqueness on (accountID, periodStart) is the store's responsibility;
// UpsertIncrement and Reserve must be atomic per key so concurrent
// requests neither double-create a row nor both take the last slot.
type UsageStore interface {
	// Find retrieves the counter row for one account and period.
	// Returns ErrNotFound when no consumption has been recorded yet;
	// it never creates a row.
	Find(ctx context.Context, accountID string, periodStart time.Time) (usage.Record, error)

	// UpsertIncrement atomically adds delta to the counter, creating
	// the row with count=delta if absent, and returns the new record.
	UpsertIncrement(ctx context.Context, accountID string, period billing.Period, delta int64) (usage.Record, error)

	// Reserve atomically increments the counter by one only if the
	// current count is below limit, creating the row if absent.
	// Returns the resulting record and whether the slot was taken.
	Reserve(ctx context.Context, accountID string, period billing.Period, limit int64) (usage.Record, bool, error)

	// SetCount overwrites the counter for an existing row.
	// Returns ErrNotFound when the row does not exist.
	SetCount(ctx context.Context, accountID string, periodStart time.Time, count int64) error

	// ListByAccount returns all counter rows for an account, newest
	// period first. Historical periods are never deleted.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]usage.Record, error)
}

// ProfileStore persists medical profiles (one per account).
type ProfileStore interface {
	// Get retrieves the profile for an account.
	Get(ctx context.Context, accountID string) (profile.Profile, error)

	// Put creates or replaces the profile for an account.
	Put(ctx context.Context, p profile.Profile) error
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// CreateConversation stores a new conversation.
	CreateConversation(ctx context.Context, c chat.Conversation) error

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id string) (chat.Conversation, error)

	// ListConversations returns an account's conversations, newest first.
	ListConversations(ctx context.Context, accountID string, limit int) ([]chat.Conversation, error)

	// AppendMessage stores a message and bumps the conversation's
	// updated time.
	AppendMessage(ctx context.Context, m chat.Message) error

	// ListMessages returns a conversation's messages in creation order.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// AssistantRequest is a question plus the context the answer should be
// grounded in.
type AssistantRequest struct {
	AccountID      string
	ConversationID string
	Question       string
	ProfileContext string
	History        []chat.Message
}

// AssistantAnswer is the generated answer with its source citations.
type AssistantAnswer struct {
	Content   string
	Citations []chat.Citation
	LatencyMs int64
}

// Assistant is the external retrieval-augmented generation service.
// Retrieval, embedding, and generation all happen on the other side of
// this interface.
type Assistant interface {
	// Ask sends a question and returns the grounded answer.
	Ask(ctx context.Context, req AssistantRequest) (AssistantAnswer, error)

	// IndexDocument submits a personal document for embedding so later
	// answers can cite it.
	IndexDocument(ctx context.Context, accountID, documentID, title string, content []byte) error

	// HealthCheck verifies the service is reachable.
	HealthCheck(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Payment Provider Ports
// -----------------------------------------------------------------------------

// PaymentProvider interfaces with the payment processor.
type PaymentProvider interface {
	// Name returns the provider name (e.g., "stripe").
	Name() string

	// CreateCustomer creates a customer in the payment system.
	CreateCustomer(ctx context.Context, email, name, accountID string) (customerID string, err error)

	// CreateCheckoutSession creates a checkout session for a tier.
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (sessionURL string, err error)

	// CreatePortalSession creates a customer portal session.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (portalURL string, err error)

	// CancelSubscription cancels a subscription.
	CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) error

	// GetSubscription retrieves subscription details.
	GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error)

	// ParseWebhook parses and validates an incoming webhook.
	// Returns the event type and payload.
	ParseWebhook(payload []byte, signature string) (eventType string, data map[string]any, err error)
}

// PaymentWebhookHandler handles payment provider webhooks.
type PaymentWebhookHandler interface {
	// HandleCheckoutCompleted handles successful checkout: the account
	// moves to the purchased tier, its consumption resets, and its
	// billing anchor follows the provider's period start.
	HandleCheckoutCompleted(ctx context.Context, customerID, subscriptionID, priceID string, periodStart time.Time) error

	// HandleSubscriptionUpdated handles subscription changes.
	HandleSubscriptionUpdated(ctx context.Context, customerID, priceID string, status billing.SubscriptionStatus) error

	// HandleSubscriptionCancelled handles subscription cancellation:
	// the account falls back to the free tier.
	HandleSubscriptionCancelled(ctx context.Context, customerID string) error
}
