package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresImportRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	imp := &Import{UserID: uuid.New(), BankType: "ING", RowsParsed: 3, RowsSkipped: 1, Duplicates: 1}
	id := uuid.New()
	created := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO imports`).
		WithArgs(imp.UserID, "ING", 3, 1, 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, created))

	require.NoError(t, repo.Create(context.Background(), imp))
	assert.Equal(t, id, imp.ID)
	assert.Equal(t, created, imp.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_CreateError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO imports`).WillReturnError(errors.New("connection reset"))

	err = NewPostgresImportRepository(mock).Create(context.Background(), &Import{UserID: uuid.New()})
	assert.ErrorContains(t, err, "failed to create import")
}

func TestPostgresImportRepository_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	key := "imports/raw.csv"
	imp := &Import{ID: uuid.New(), UserID: uuid.New(), RowsInserted: 2, RawKey: &key}

	mock.ExpectExec(`UPDATE imports`).
		WithArgs(imp.ID, imp.UserID, 2, &key).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Complete(context.Background(), imp))

	mock.ExpectExec(`UPDATE imports`).
		WithArgs(imp.ID, imp.UserID, 2, &key).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Complete(context.Background(), imp), ErrImportNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, bank_type`).
		WithArgs(userID, 20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "bank_type", "rows_parsed", "rows_skipped", "rows_inserted", "duplicates", "raw_key", "created_at",
		}).
			AddRow(uuid.New(), userID, "Revolut", 4, 0, 4, 0, (*string)(nil), now).
			AddRow(uuid.New(), userID, "ING", 3, 1, 1, 1, (*string)(nil), now.Add(-time.Hour)))

	got, err := repo.List(context.Background(), userID, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Revolut", got[0].BankType)
	assert.Equal(t, 1, got[1].Duplicates)
	assert.NoError(t, mock.ExpectationsWereMet())
}
