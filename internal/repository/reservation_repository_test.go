package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/internal/models"
)

func newReservationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReservationRepositoryUpdateStatusGuardsCurrentState(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = $3")).
		WithArgs("res-1", models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "res-1",
		models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpdateStatusStaleTransition(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = $3")).
		WithArgs("res-1", models.ReservationStatusAwaitingPayment, models.ReservationStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "res-1",
		models.ReservationStatusAwaitingPayment, models.ReservationStatusCompleted)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryListExpired(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "class_id", "status", "expires_at", "created_at", "updated_at"}).
		AddRow("res-1", "user-1", "class-1", models.ReservationStatusReserved, now.Add(-time.Minute), now.Add(-11*time.Minute), now.Add(-11*time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE status IN ($2, $3) AND expires_at < $1")).
		WithArgs(now, models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment, 100).
		WillReturnRows(rows)

	expired, err := repo.ListExpired(context.Background(), now, 0)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "res-1", expired[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
