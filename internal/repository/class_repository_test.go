package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/internal/models"
)

func newClassRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryReserveSeatClaimsWhenCapacityLeft(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET reserved_count = reserved_count + 1")).
		WithArgs("class-1", models.ClassStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ReserveSeat(context.Background(), "class-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryReserveSeatRejectsWhenFull(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET reserved_count = reserved_count + 1")).
		WithArgs("class-1", models.ClassStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ReserveSeat(context.Background(), "class-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCommitSeatPromotesHold(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("current_attendees = current_attendees + 1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CommitSeat(context.Background(), "class-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCommitSeatFailsWhenClassVanished(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("current_attendees = current_attendees + 1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CommitSeat(context.Background(), "class-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryReleaseSeatFloorsAtZero(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("GREATEST(reserved_count - 1, 0)")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseSeat(context.Background(), "class-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
