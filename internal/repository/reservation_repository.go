package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitzone/booking-api/internal/models"
)

// ReservationRepository handles persistence of provisional seat holds.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// FindLive returns the user's live reservation for a class, if any.
func (r *ReservationRepository) FindLive(ctx context.Context, userID, classID string) (*models.Reservation, error) {
	const query = `SELECT id, user_id, class_id, status, expires_at, created_at, updated_at
        FROM reservations WHERE user_id = $1 AND class_id = $2 AND status IN ($3, $4)
        ORDER BY created_at DESC LIMIT 1`
	var reservation models.Reservation
	err := r.db.GetContext(ctx, &reservation, query, userID, classID,
		models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Create inserts a new Reserved hold.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if reservation.Status == "" {
		reservation.Status = models.ReservationStatusReserved
	}
	now := time.Now().UTC()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now
	const query = `INSERT INTO reservations (id, user_id, class_id, status, expires_at, created_at, updated_at)
        VALUES (:id, :user_id, :class_id, :status, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reservation); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// UpdateStatus transitions a reservation. The current status is part of the
// predicate so concurrent sweeps and completions cannot double-apply.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, from, to models.ReservationStatus) error {
	const query = `UPDATE reservations SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation rows: %w", err)
	}
	if affected != 1 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelLive marks any live reservation for the pair as the given terminal
// status, returning the number of rows transitioned.
func (r *ReservationRepository) CancelLive(ctx context.Context, userID, classID string, to models.ReservationStatus) (int64, error) {
	const query = `UPDATE reservations SET status = $3, updated_at = NOW()
        WHERE user_id = $1 AND class_id = $2 AND status IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query, userID, classID, to,
		models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment)
	if err != nil {
		return 0, fmt.Errorf("cancel reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel reservation rows: %w", err)
	}
	return affected, nil
}

// ListExpired returns live reservations whose hold TTL has elapsed.
func (r *ReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, user_id, class_id, status, expires_at, created_at, updated_at
        FROM reservations WHERE status IN ($2, $3) AND expires_at < $1
        ORDER BY expires_at LIMIT $4`
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, now,
		models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment, limit); err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	return reservations, nil
}

// CountLive returns the number of live holds, used for metrics snapshots.
func (r *ReservationRepository) CountLive(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM reservations WHERE status IN ($1, $2)`
	var count int64
	if err := r.db.GetContext(ctx, &count, query,
		models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment); err != nil {
		return 0, fmt.Errorf("count live reservations: %w", err)
	}
	return count, nil
}
