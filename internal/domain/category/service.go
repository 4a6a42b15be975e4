package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// CreateInput describes a new category. Color is ignored for subcategories.
type CreateInput struct {
	Name         string
	Color        string
	Icon         string
	ParentID     *uuid.UUID
	DisplayOrder int
}

// Service enforces the hierarchy rules on top of Repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new category service
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the user's flat category records.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	return s.repo.List(ctx, userID)
}

// Tree loads and assembles the user's hierarchy. Malformed records are logged
// and left out.
func (s *Service) Tree(ctx context.Context, userID uuid.UUID) (*Tree, error) {
	records, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	tree, problems := BuildTree(records)
	for _, p := range problems {
		s.logger.Warn("category excluded from hierarchy",
			slog.String("user_id", userID.String()),
			slog.Any("error", p),
		)
	}
	return tree, nil
}

// Create adds a main category or, with ParentID, a subcategory that inherits
// its parent's color.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var c Category
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, userID, *in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent: %w", err)
		}
		if parent.ParentID != nil {
			return nil, ErrInvalidParent
		}
		c = NewSubcategory(&Main{Category: *parent}, name, in.Icon)
		c.DisplayOrder = in.DisplayOrder
	} else {
		color := in.Color
		if color == "" {
			color = DefaultColor
		}
		c = Category{
			ID:           uuid.New(),
			UserID:       userID,
			Name:         name,
			Color:        color,
			Icon:         in.Icon,
			DisplayOrder: in.DisplayOrder,
		}
	}

	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, err
	}
	s.logger.Info("category created",
		slog.String("user_id", userID.String()),
		slog.String("category_id", c.ID.String()),
		slog.Bool("subcategory", c.ParentID != nil),
	)
	return &c, nil
}

// Delete removes a non-system category and, through the store, its children.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	c, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if c.IsSystem {
		return ErrSystemCategory
	}
	return s.repo.Delete(ctx, userID, id)
}
