package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/caregate/caregate/ports"
)

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("already exists")

// AccountStore implements ports.AccountStore using SQLite.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new SQLite account store.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, email, password_hash, name, tier, billing_anchor, stripe_id, status, created_at, updated_at`

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (ports.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ?
	`, id)
	return scanAccount(row)
}

// GetByEmail retrieves an account by email.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (ports.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = ?
	`, email)
	return scanAccount(row)
}

// GetByStripeID retrieves an account by payment-provider customer ID.
func (s *AccountStore) GetByStripeID(ctx context.Context, stripeID string) (ports.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE stripe_id = ?
	`, stripeID)
	return scanAccount(row)
}

// Create stores a new account.
func (s *AccountStore) Create(ctx context.Context, a ports.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.BillingAnchor.IsZero() {
		a.BillingAnchor = a.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, name, tier, billing_anchor, stripe_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Email, a.PasswordHash, a.Name, a.Tier, a.BillingAnchor.UTC(),
		nullString(a.StripeID), a.Status, a.CreatedAt, a.UpdatedAt)

	if err != nil && isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an existing account.
func (s *AccountStore) Update(ctx context.Context, a ports.Account) error {
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET email = ?, password_hash = ?, name = ?, tier = ?, billing_anchor = ?,
			stripe_id = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, a.Email, a.PasswordHash, a.Name, a.Tier, a.BillingAnchor.UTC(),
		nullString(a.StripeID), a.Status, a.UpdatedAt, a.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// List returns accounts with pagination.
func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]ports.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []ports.Account
	for rows.Next() {
		a, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Count returns total account count.
func (s *AccountStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

func scanAccount(row *sql.Row) (ports.Account, error) {
	var a ports.Account
	var stripeID sql.NullString

	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Tier, &a.BillingAnchor,
		&stripeID, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Account{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Account{}, err
	}
	a.StripeID = stripeID.String
	return a, nil
}

func scanAccountRows(rows *sql.Rows) (ports.Account, error) {
	var a ports.Account
	var stripeID sql.NullString

	err := rows.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Tier, &a.BillingAnchor,
		&stripeID, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return ports.Account{}, err
	}
	a.StripeID = stripeID.String
	return a, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
