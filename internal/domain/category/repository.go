package category

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/expense-tracker/pkg/db"
)

// Repository is the data-store collaborator for categories.
type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]Category, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository creates a new PostgreSQL category repository
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

const columns = `id, user_id, parent_id, name, color, icon, is_system, display_order, created_at`

// List returns all categories of a user.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	query := `SELECT ` + columns + ` FROM categories WHERE user_id = $1 ORDER BY display_order, name`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := scan(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return out, nil
}

// Get returns one category of a user or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Category, error) {
	query := `SELECT ` + columns + ` FROM categories WHERE user_id = $1 AND id = $2`

	var c Category
	err := scan(r.db.QueryRow(ctx, query, userID, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// Create inserts a category, assigning an id when missing.
func (r *PostgresRepository) Create(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (id, user_id, parent_id, name, color, icon, is_system, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		c.ID,
		c.UserID,
		c.ParentID,
		c.Name,
		c.Color,
		c.Icon,
		c.IsSystem,
		c.DisplayOrder,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// Delete removes a category. Children go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM categories WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scan(row pgx.Row, c *Category) error {
	return row.Scan(
		&c.ID,
		&c.UserID,
		&c.ParentID,
		&c.Name,
		&c.Color,
		&c.Icon,
		&c.IsSystem,
		&c.DisplayOrder,
		&c.CreatedAt,
	)
}
