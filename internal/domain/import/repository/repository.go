// Package repository persists import batches.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/expense-tracker/pkg/db"
)

// ErrImportNotFound is returned when an import does not exist for the user.
var ErrImportNotFound = errors.New("import not found")

// Import is one committed upload.
type Import struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	BankType     string
	RowsParsed   int
	RowsSkipped  int
	RowsInserted int
	Duplicates   int
	RawKey       *string
	CreatedAt    time.Time
}

// ImportRepository defines data access for import batches.
type ImportRepository interface {
	Create(ctx context.Context, imp *Import) error
	Complete(ctx context.Context, imp *Import) error
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*Import, error)
}

var _ ImportRepository = (*PostgresImportRepository)(nil)

// PostgresImportRepository implements ImportRepository on PostgreSQL
type PostgresImportRepository struct {
	db db.Querier
}

// NewPostgresImportRepository creates a new import repository
func NewPostgresImportRepository(q db.Querier) *PostgresImportRepository {
	return &PostgresImportRepository{db: q}
}

// Create inserts the import row and fills in its ID and CreatedAt.
func (r *PostgresImportRepository) Create(ctx context.Context, imp *Import) error {
	query := `
		INSERT INTO imports (user_id, bank_type, rows_parsed, rows_skipped, duplicates)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		imp.UserID, imp.BankType, imp.RowsParsed, imp.RowsSkipped, imp.Duplicates,
	).Scan(&imp.ID, &imp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import: %w", err)
	}
	return nil
}

// Complete stores the inserted row count and the archive key.
func (r *PostgresImportRepository) Complete(ctx context.Context, imp *Import) error {
	query := `
		UPDATE imports
		SET rows_inserted = $3, raw_key = $4
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, imp.ID, imp.UserID, imp.RowsInserted, imp.RawKey)
	if err != nil {
		return fmt.Errorf("failed to complete import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrImportNotFound
	}
	return nil
}

// List returns the user's most recent imports.
func (r *PostgresImportRepository) List(ctx context.Context, userID uuid.UUID, limit int) ([]*Import, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, user_id, bank_type, rows_parsed, rows_skipped, rows_inserted, duplicates, raw_key, created_at
		FROM imports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}

	imports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Import, error) {
		var imp Import
		err := row.Scan(
			&imp.ID, &imp.UserID, &imp.BankType, &imp.RowsParsed, &imp.RowsSkipped,
			&imp.RowsInserted, &imp.Duplicates, &imp.RawKey, &imp.CreatedAt,
		)
		return &imp, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan imports: %w", err)
	}
	return imports, nil
}
