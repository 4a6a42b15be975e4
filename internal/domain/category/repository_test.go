package category

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryColumns = []string{"id", "user_id", "parent_id", "name", "color", "icon", "is_system", "display_order", "created_at"}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	parentID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, parent_id`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(categoryColumns).
			AddRow(parentID, userID, (*uuid.UUID)(nil), "Food", "#ff0000", "utensils", false, 0, now).
			AddRow(uuid.New(), userID, &parentID, "Groceries", "#ff0000", "cart", false, 1, now))

	got, err := NewPostgresRepository(mock).List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ParentID)
	require.NotNil(t, got[1].ParentID)
	assert.Equal(t, parentID, *got[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT id, user_id, parent_id`).
		WithArgs(userID, id).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresRepository(mock).Get(context.Background(), userID, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	c := &Category{ID: uuid.New(), UserID: uuid.New(), Name: "Travel", Color: DefaultColor}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs(c.ID, c.UserID, (*uuid.UUID)(nil), "Travel", DefaultColor, "", false, 0).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, NewPostgresRepository(mock).Create(context.Background(), c))
	assert.Equal(t, now, c.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(`DELETE FROM categories`).
		WithArgs(userID, id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), userID, id))

	mock.ExpectExec(`DELETE FROM categories`).
		WithArgs(userID, id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), userID, id), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
