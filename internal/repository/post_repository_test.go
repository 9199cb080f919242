package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pageflowhq/pageflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM posts")).
		WithArgs(models.PostStatusScheduled, now, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))

	// post 2 was claimed by an overlapping run; the conditional update skips it
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(models.PostStatusSending, now, sqlmock.AnyArg(), models.PostStatusScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(3))

	claimed, err := repo.ClaimDue(context.Background(), 3, now)
	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueNothingDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM posts")).
		WithArgs(models.PostStatusScheduled, now, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	claimed, err := repo.ClaimDue(context.Background(), 3, now)
	assert.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(models.PostStatusPublished, "fb_1001", sqlmock.AnyArg(), int64(1), models.PostStatusSending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Finalize(context.Background(), 1, models.PostStatusSending, models.PostStatusPublished, "fb_1001")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeStatusDrifted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	// the row is no longer SENDING, so the guarded update touches nothing
	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts")).
		WithArgs(models.PostStatusSendFailed, "", sqlmock.AnyArg(), int64(1), models.PostStatusSending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Finalize(context.Background(), 1, models.PostStatusSending, models.PostStatusSendFailed, "")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByID(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, post)
	assert.NoError(t, mock.ExpectationsWereMet())
}
