package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitzone/booking-api/internal/models"
)

// MembershipRepository handles studio membership windows.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// FindActiveWindow returns the user's membership window covering the given
// instant, if any. sql.ErrNoRows means no active membership.
func (r *MembershipRepository) FindActiveWindow(ctx context.Context, userID string, at time.Time) (*models.MembershipWindow, error) {
	const query = `SELECT id, user_id, start_date, end_date, active, created_at
        FROM memberships WHERE user_id = $1 AND active = TRUE AND start_date <= $2 AND end_date >= $2
        ORDER BY end_date DESC LIMIT 1`
	var window models.MembershipWindow
	if err := r.db.GetContext(ctx, &window, query, userID, at); err != nil {
		return nil, err
	}
	return &window, nil
}

// FindLatestWindow returns the most recent membership window regardless of
// whether it is still active, used when extending an expiring membership.
func (r *MembershipRepository) FindLatestWindow(ctx context.Context, userID string) (*models.MembershipWindow, error) {
	const query = `SELECT id, user_id, start_date, end_date, active, created_at
        FROM memberships WHERE user_id = $1 ORDER BY end_date DESC LIMIT 1`
	var window models.MembershipWindow
	if err := r.db.GetContext(ctx, &window, query, userID); err != nil {
		return nil, err
	}
	return &window, nil
}

// Create persists a new membership window.
func (r *MembershipRepository) Create(ctx context.Context, window *models.MembershipWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}
	window.Active = true
	const query = `INSERT INTO memberships (id, user_id, start_date, end_date, active, created_at)
        VALUES (:id, :user_id, :start_date, :end_date, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// ExtendWindow pushes an existing window's end date forward.
func (r *MembershipRepository) ExtendWindow(ctx context.Context, id string, newEnd time.Time) error {
	const query = `UPDATE memberships SET end_date = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, newEnd); err != nil {
		return fmt.Errorf("extend membership: %w", err)
	}
	return nil
}
