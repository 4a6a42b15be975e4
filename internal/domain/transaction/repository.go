package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/expense-tracker/pkg/db"
	"github.com/FACorreiaa/expense-tracker/pkg/money"
)

// Repository is the data-store collaborator for transactions.
type Repository interface {
	Query(ctx context.Context, userID uuid.UUID, filter Filter) ([]Stored, error)
	Insert(ctx context.Context, userID uuid.UUID, records []Parsed, importID *uuid.UUID) ([]Stored, error)
}

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository stores transactions with amounts in minor units.
type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository creates a new PostgreSQL transaction repository
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

const selectColumns = `id, user_id, import_id, category_id, transaction_date, booking_date,
	amount_minor, currency, merchant, description, transaction_type,
	original_amount_minor, original_currency, comment, is_confirmed, created_at`

// Query returns the user's transactions ordered by date, optionally bounded.
func (r *PostgresRepository) Query(ctx context.Context, userID uuid.UUID, filter Filter) ([]Stored, error) {
	query := `SELECT ` + selectColumns + `
		FROM transactions
		WHERE user_id = $1`
	args := []any{userID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND transaction_date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND transaction_date <= $%d`, len(args))
	}
	query += ` ORDER BY transaction_date ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		s, err := scanStored(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

// Insert writes a batch in one database transaction.
func (r *PostgresRepository) Insert(ctx context.Context, userID uuid.UUID, records []Parsed, importID *uuid.UUID) ([]Stored, error) {
	if len(records) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO transactions (
			user_id, import_id, transaction_date, booking_date, amount_minor, currency,
			merchant, description, transaction_type, original_amount_minor, original_currency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Stored, 0, len(records))
	for _, p := range records {
		s := Stored{Parsed: p, UserID: userID, ImportID: importID}
		if s.Currency == "" {
			s.Currency = DefaultCurrency
		}

		var originalMinor *int64
		if p.OriginalAmount != nil {
			code := DefaultCurrency
			if p.OriginalCurrency != nil {
				code = *p.OriginalCurrency
			}
			m, err := money.ToMinor(*p.OriginalAmount, code)
			if err != nil {
				return nil, fmt.Errorf("failed to convert original amount: %w", err)
			}
			originalMinor = &m
		}
		amountMinor, err := money.ToMinor(p.Amount, s.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to convert amount: %w", err)
		}

		err = tx.QueryRow(ctx, query,
			userID,
			importID,
			p.TransactionDate,
			p.BookingDate,
			amountMinor,
			s.Currency,
			p.Merchant,
			p.Description,
			p.TransactionType,
			originalMinor,
			p.OriginalCurrency,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		out = append(out, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return out, nil
}

func scanStored(row pgx.Row) (Stored, error) {
	var (
		s             Stored
		amountMinor   int64
		originalMinor *int64
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ImportID,
		&s.CategoryID,
		&s.TransactionDate,
		&s.BookingDate,
		&amountMinor,
		&s.Currency,
		&s.Merchant,
		&s.Description,
		&s.TransactionType,
		&originalMinor,
		&s.OriginalCurrency,
		&s.Comment,
		&s.IsConfirmed,
		&s.CreatedAt,
	)
	if err != nil {
		return Stored{}, err
	}

	s.Amount = money.FromMinor(amountMinor, s.Currency)
	if originalMinor != nil {
		code := DefaultCurrency
		if s.OriginalCurrency != nil {
			code = *s.OriginalCurrency
		}
		amt := money.FromMinor(*originalMinor, code)
		s.OriginalAmount = &amt
	}
	s.TransactionDate = utcDate(s.TransactionDate)
	if s.BookingDate != nil {
		d := utcDate(*s.BookingDate)
		s.BookingDate = &d
	}
	return s, nil
}

func utcDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
