package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
)

type memRepository struct {
	items map[uuid.UUID]category.Category
}

func (m *memRepository) List(_ context.Context, userID uuid.UUID) ([]category.Category, error) {
	var out []category.Category
	for _, c := range m.items {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepository) Get(_ context.Context, userID, id uuid.UUID) (*category.Category, error) {
	c, ok := m.items[id]
	if !ok || c.UserID != userID {
		return nil, category.ErrNotFound
	}
	return &c, nil
}

func (m *memRepository) Create(_ context.Context, c *category.Category) error {
	m.items[c.ID] = *c
	return nil
}

func (m *memRepository) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func setup() (*CategoryHandler, context.Context, uuid.UUID) {
	userID := uuid.New()
	repo := &memRepository{items: map[uuid.UUID]category.Category{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewCategoryHandler(category.NewService(repo, logger), logger)
	return h, interceptors.WithUserID(context.Background(), userID.String()), userID
}

func TestCategoryHandler_RequiresUser(t *testing.T) {
	h, _, _ := setup()

	_, err := h.ListCategories(context.Background(), connect.NewRequest(&ListCategoriesRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestCategoryHandler_CreateAndList(t *testing.T) {
	h, ctx, _ := setup()

	food, err := h.CreateCategory(ctx, connect.NewRequest(&CreateCategoryRequest{Name: "Food", Color: "#ff0000"}))
	require.NoError(t, err)

	sub, err := h.CreateCategory(ctx, connect.NewRequest(&CreateCategoryRequest{
		Name:     "Coffee",
		ParentID: food.Msg.Category.ID.String(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", sub.Msg.Category.Color)

	list, err := h.ListCategories(ctx, connect.NewRequest(&ListCategoriesRequest{}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Categories, 2)

	t.Run("third level is rejected", func(t *testing.T) {
		_, err := h.CreateCategory(ctx, connect.NewRequest(&CreateCategoryRequest{
			Name:     "Espresso",
			ParentID: sub.Msg.Category.ID.String(),
		}))
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := h.CreateCategory(ctx, connect.NewRequest(&CreateCategoryRequest{Name: "  "}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := h.CreateCategory(ctx, connect.NewRequest(&CreateCategoryRequest{Name: "X", ParentID: uuid.NewString()}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestCategoryHandler_Delete(t *testing.T) {
	h, ctx, _ := setup()

	created, err := h.CreateCategory(ctx, connect.NewRequest(&CreateCategoryRequest{Name: "Travel"}))
	require.NoError(t, err)

	_, err = h.DeleteCategory(ctx, connect.NewRequest(&DeleteCategoryRequest{ID: created.Msg.Category.ID.String()}))
	require.NoError(t, err)

	_, err = h.DeleteCategory(ctx, connect.NewRequest(&DeleteCategoryRequest{ID: created.Msg.Category.ID.String()}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = h.DeleteCategory(ctx, connect.NewRequest(&DeleteCategoryRequest{ID: "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
