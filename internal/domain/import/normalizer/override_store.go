package normalizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/expense-tracker/pkg/db"
)

// Override match types.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchRegex    = "regex"
)

var (
	// ErrOverrideNotFound is returned when deleting an unknown override.
	ErrOverrideNotFound = errors.New("merchant override not found")
	// ErrInvalidOverride is returned for an empty pattern or an unknown match type.
	ErrInvalidOverride = errors.New("invalid merchant override")
)

// MerchantOverride is a user's correction for statement lines matching a
// pattern: the merchant name to show and, optionally, the category to suggest.
type MerchantOverride struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	MatchPattern string     `json:"match_pattern"`
	MatchType    string     `json:"match_type"`
	MerchantName string     `json:"merchant_name"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Validate checks the pattern and match type.
func (o MerchantOverride) Validate() error {
	if strings.TrimSpace(o.MatchPattern) == "" || strings.TrimSpace(o.MerchantName) == "" {
		return fmt.Errorf("%w: pattern and merchant name are required", ErrInvalidOverride)
	}
	switch o.MatchType {
	case MatchExact, MatchContains:
		return nil
	case MatchRegex:
		if _, err := regexp.Compile("(?i)" + o.MatchPattern); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOverride, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown match type %q", ErrInvalidOverride, o.MatchType)
}

// Matches reports whether the raw merchant matches the override. Matching is
// case-insensitive for every match type.
func (o MerchantOverride) Matches(rawMerchant string) bool {
	switch o.MatchType {
	case MatchExact:
		return matchExact(rawMerchant, o.MatchPattern)
	case MatchContains:
		return matchContains(rawMerchant, o.MatchPattern)
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + o.MatchPattern)
		return err == nil && re.MatchString(rawMerchant)
	}
	return false
}

// FindOverride returns the first override matching the raw merchant. The slice
// is expected in priority order as returned by OverrideStore.List.
func FindOverride(overrides []MerchantOverride, rawMerchant string) (*MerchantOverride, bool) {
	for i := range overrides {
		if overrides[i].Matches(rawMerchant) {
			return &overrides[i], true
		}
	}
	return nil, false
}

func matchExact(raw, pattern string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), strings.TrimSpace(pattern))
}

func matchContains(raw, pattern string) bool {
	return strings.Contains(strings.ToUpper(raw), strings.ToUpper(strings.TrimSpace(pattern)))
}

// OverrideStore manages user merchant overrides in the database
type OverrideStore struct {
	db db.Querier
}

// NewOverrideStore creates a new override store
func NewOverrideStore(q db.Querier) *OverrideStore {
	return &OverrideStore{db: q}
}

const overrideColumns = `id, user_id, match_pattern, match_type, merchant_name, category_id, created_at, updated_at`

// Save creates or updates the user's override for a pattern
func (s *OverrideStore) Save(ctx context.Context, override MerchantOverride) (*MerchantOverride, error) {
	if err := override.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO user_merchant_overrides (user_id, match_pattern, match_type, merchant_name, category_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, match_pattern) DO UPDATE SET
			match_type = EXCLUDED.match_type,
			merchant_name = EXCLUDED.merchant_name,
			category_id = EXCLUDED.category_id,
			updated_at = now()
		RETURNING ` + overrideColumns

	result, err := scanOverride(s.db.QueryRow(ctx, query,
		override.UserID,
		strings.TrimSpace(override.MatchPattern),
		override.MatchType,
		strings.TrimSpace(override.MerchantName),
		override.CategoryID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save merchant override: %w", err)
	}
	return &result, nil
}

// List returns the user's overrides, most recently updated first
func (s *OverrideStore) List(ctx context.Context, userID uuid.UUID) ([]MerchantOverride, error) {
	query := `SELECT ` + overrideColumns + `
		FROM user_merchant_overrides
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchant overrides: %w", err)
	}
	defer rows.Close()

	var overrides []MerchantOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// Delete removes an override
func (s *OverrideStore) Delete(ctx context.Context, userID, overrideID uuid.UUID) error {
	query := `DELETE FROM user_merchant_overrides WHERE id = $1 AND user_id = $2`
	result, err := s.db.Exec(ctx, query, overrideID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete merchant override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

func scanOverride(row pgx.Row) (MerchantOverride, error) {
	var o MerchantOverride
	err := row.Scan(
		&o.ID, &o.UserID, &o.MatchPattern, &o.MatchType,
		&o.MerchantName, &o.CategoryID, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
