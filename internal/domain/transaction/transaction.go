// Package transaction defines the canonical transaction records shared by the
// import pipeline and the analytics engine, plus their PostgreSQL store.
package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a statement does not name one.
const DefaultCurrency = "PLN"

// DateLayout is the canonical date format.
const DateLayout = "2006-01-02"

// Parsed is a normalized transaction produced by ingestion and not yet persisted.
// Amount is signed: positive is income, negative is an expense.
type Parsed struct {
	TransactionDate  time.Time        `json:"transaction_date"`
	BookingDate      *time.Time       `json:"booking_date,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	Merchant         *string          `json:"merchant,omitempty"`
	Description      *string          `json:"description,omitempty"`
	TransactionType  *string          `json:"transaction_type,omitempty"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency *string          `json:"original_currency,omitempty"`
}

// Stored is a persisted transaction owned by a single user.
// A nil CategoryID means uncategorized.
type Stored struct {
	Parsed
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	ImportID    *uuid.UUID `json:"import_id,omitempty"`
	Comment     string     `json:"comment"`
	IsConfirmed bool       `json:"is_confirmed"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsExpense reports whether the amount is negative.
func (p Parsed) IsExpense() bool {
	return p.Amount.IsNegative()
}

// MerchantName returns the merchant or an empty string.
func (p Parsed) MerchantName() string {
	if p.Merchant == nil {
		return ""
	}
	return *p.Merchant
}

// Fingerprint returns the projection compared by duplicate detection.
func (p Parsed) Fingerprint() Fingerprint {
	return Fingerprint{
		Date:     p.TransactionDate,
		Amount:   p.Amount,
		Merchant: p.Merchant,
	}
}

// Fingerprint is the {date, amount, merchant} triple of a transaction.
type Fingerprint struct {
	Date     time.Time
	Amount   decimal.Decimal
	Merchant *string
}

// DateKey returns the canonical YYYY-MM-DD form of the date.
func (f Fingerprint) DateKey() string {
	return f.Date.Format(DateLayout)
}

// Fingerprints projects stored transactions for duplicate detection.
func Fingerprints(stored []Stored) []Fingerprint {
	out := make([]Fingerprint, len(stored))
	for i, s := range stored {
		out[i] = s.Fingerprint()
	}
	return out
}

// Filter narrows Repository.Query. Nil bounds are open.
type Filter struct {
	From *time.Time
	To   *time.Time
}

// Span returns the smallest filter covering every transaction date in the batch.
func Span(batch []Parsed) Filter {
	if len(batch) == 0 {
		return Filter{}
	}
	from, to := batch[0].TransactionDate, batch[0].TransactionDate
	for _, p := range batch[1:] {
		if p.TransactionDate.Before(from) {
			from = p.TransactionDate
		}
		if p.TransactionDate.After(to) {
			to = p.TransactionDate
		}
	}
	return Filter{From: &from, To: &to}
}

// StringPtr returns nil for blank input and a trimmed copy otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
