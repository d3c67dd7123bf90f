package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitzone/booking-api/internal/models"
)

// ClassMemberRepository handles membership rows linking users to classes.
type ClassMemberRepository struct {
	db *sqlx.DB
}

// NewClassMemberRepository constructs the repository.
func NewClassMemberRepository(db *sqlx.DB) *ClassMemberRepository {
	return &ClassMemberRepository{db: db}
}

// IsJoined reports whether the user holds an active membership in the class.
func (r *ClassMemberRepository) IsJoined(ctx context.Context, userID, classID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_members WHERE user_id = $1 AND class_id = $2 AND status = $3)`
	var joined bool
	if err := r.db.GetContext(ctx, &joined, query, userID, classID, models.MemberStatusActive); err != nil {
		return false, fmt.Errorf("check class membership: %w", err)
	}
	return joined, nil
}

// Create inserts an active class membership row.
func (r *ClassMemberRepository) Create(ctx context.Context, member *models.ClassMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.Status == "" {
		member.Status = models.MemberStatusActive
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_members (id, user_id, class_id, joined_at, left_at, status)
        VALUES (:id, :user_id, :class_id, :joined_at, :left_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("create class member: %w", err)
	}
	return nil
}

// Leave marks the user's membership as left, returning rows affected so the
// caller can distinguish a no-op.
func (r *ClassMemberRepository) Leave(ctx context.Context, userID, classID string) (int64, error) {
	const query = `UPDATE class_members SET status = $3, left_at = NOW()
        WHERE user_id = $1 AND class_id = $2 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, userID, classID, models.MemberStatusLeft, models.MemberStatusActive)
	if err != nil {
		return 0, fmt.Errorf("leave class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("leave class rows: %w", err)
	}
	return affected, nil
}

// ListByClass returns the active roster for a class with user details.
func (r *ClassMemberRepository) ListByClass(ctx context.Context, classID string) ([]models.AttendeeDetail, error) {
	const query = `SELECT m.id, m.user_id, m.class_id, m.joined_at, m.left_at, m.status,
        u.full_name, u.email, u.phone
        FROM class_members m JOIN users u ON u.id = m.user_id
        WHERE m.class_id = $1 AND m.status = $2 ORDER BY m.joined_at`
	var attendees []models.AttendeeDetail
	if err := r.db.SelectContext(ctx, &attendees, query, classID, models.MemberStatusActive); err != nil {
		return nil, fmt.Errorf("list class attendees: %w", err)
	}
	return attendees, nil
}
