package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caregate/caregate/domain/profile"
	"github.com/caregate/caregate/ports"
)

// ProfileStore implements ports.ProfileStore using SQLite.
// List fields (conditions, medications, allergies) are stored as JSON
// text columns.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new SQLite profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get retrieves the profile for an account.
func (s *ProfileStore) Get(ctx context.Context, accountID string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, date_of_birth, sex, height_cm, weight_kg,
			conditions, medications, allergies, notes, updated_at
		FROM profiles
		WHERE account_id = ?
	`, accountID)

	var p profile.Profile
	var dob sql.NullTime
	var conditions, medications, allergies string

	err := row.Scan(&p.AccountID, &dob, &p.Sex, &p.HeightCm, &p.WeightKg,
		&conditions, &medications, &allergies, &p.Notes, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, ports.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}

	if dob.Valid {
		p.DateOfBirth = dob.Time
	}
	if err := decodeList(conditions, &p.Conditions); err != nil {
		return profile.Profile{}, err
	}
	if err := decodeList(medications, &p.Medications); err != nil {
		return profile.Profile{}, err
	}
	if err := decodeList(allergies, &p.Allergies); err != nil {
		return profile.Profile{}, err
	}

	return p, nil
}

// Put creates or replaces the profile for an account.
func (s *ProfileStore) Put(ctx context.Context, p profile.Profile) error {
	conditions, err := encodeList(p.Conditions)
	if err != nil {
		return err
	}
	medications, err := encodeList(p.Medications)
	if err != nil {
		return err
	}
	allergies, err := encodeList(p.Allergies)
	if err != nil {
		return err
	}

	var dob sql.NullTime
	if !p.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: p.DateOfBirth.UTC(), Valid: true}
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (account_id, date_of_birth, sex, height_cm, weight_kg,
			conditions, medications, allergies, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			date_of_birth = excluded.date_of_birth,
			sex = excluded.sex,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			conditions = excluded.conditions,
			medications = excluded.medications,
			allergies = excluded.allergies,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, p.AccountID, dob, p.Sex, p.HeightCm, p.WeightKg,
		conditions, medications, allergies, p.Notes, p.UpdatedAt)

	return err
}

func decodeList(col string, dst *[]string) error {
	if err := json.Unmarshal([]byte(col), dst); err != nil {
		return fmt.Errorf("decode profile list: %w", err)
	}
	return nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode profile list: %w", err)
	}
	return string(b), nil
}

// Ensure interface compliance.
var _ ports.ProfileStore = (*ProfileStore)(nil)
