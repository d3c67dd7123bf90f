package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitzone/booking-api/internal/models"
)

// ScheduleRepository handles persistence of class schedule slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

type scheduleRow struct {
	ID        string     `db:"id"`
	ClassID   string     `db:"class_id"`
	DayOfWeek int        `db:"day_of_week"`
	OccursOn  *time.Time `db:"occurs_on"`
	StartMin  int        `db:"start_min"`
	EndMin    int        `db:"end_min"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (row scheduleRow) toEntry() models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:      row.ID,
		ClassID: row.ClassID,
		Slot: models.WeeklySlot{
			DayOfWeek: time.Weekday(row.DayOfWeek),
			Date:      row.OccursOn,
			Start:     row.StartMin,
			End:       row.EndMin,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// ListByClass returns the published slots for a class. An unpublished
// schedule yields an empty slice, not an error.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT id, class_id, day_of_week, occurs_on, start_min, end_min, created_at, updated_at
        FROM class_schedules WHERE class_id = $1 ORDER BY day_of_week, start_min`
	var rows []scheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list class schedules: %w", err)
	}
	entries := make([]models.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

type commitmentRow struct {
	ClassID   string     `db:"class_id"`
	ClassName string     `db:"class_name"`
	DayOfWeek int        `db:"day_of_week"`
	OccursOn  *time.Time `db:"occurs_on"`
	StartMin  int        `db:"start_min"`
	EndMin    int        `db:"end_min"`
}

// ListUserCommitments returns the slots a user is bound to through active
// class memberships, excluding entries belonging to excludeClassID so that
// re-checking the candidate class does not conflict with itself.
func (r *ScheduleRepository) ListUserCommitments(ctx context.Context, userID, excludeClassID string) ([]models.UserCommitment, error) {
	query := `SELECT s.class_id, c.name AS class_name, s.day_of_week, s.occurs_on, s.start_min, s.end_min
        FROM class_schedules s
        JOIN classes c ON c.id = s.class_id
        JOIN class_members m ON m.class_id = s.class_id
        WHERE m.user_id = $1 AND m.status = $2`
	args := []interface{}{userID, models.MemberStatusActive}
	if excludeClassID != "" {
		query += fmt.Sprintf(" AND s.class_id <> $%d", len(args)+1)
		args = append(args, excludeClassID)
	}
	var rows []commitmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list user commitments: %w", err)
	}
	commitments := make([]models.UserCommitment, 0, len(rows))
	for _, row := range rows {
		commitments = append(commitments, models.UserCommitment{
			ClassID:   row.ClassID,
			ClassName: row.ClassName,
			Slot: models.WeeklySlot{
				DayOfWeek: time.Weekday(row.DayOfWeek),
				Date:      row.OccursOn,
				Start:     row.StartMin,
				End:       row.EndMin,
			},
		})
	}
	return commitments, nil
}

// Create inserts a new schedule slot for a class.
func (r *ScheduleRepository) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	const query = `INSERT INTO class_schedules (id, class_id, day_of_week, occurs_on, start_min, end_min, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.ClassID, int(entry.Slot.DayOfWeek),
		entry.Slot.Date, entry.Slot.Start, entry.Slot.End, entry.CreatedAt, entry.UpdatedAt); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update rewrites an existing schedule slot.
func (r *ScheduleRepository) Update(ctx context.Context, entry *models.ScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET day_of_week = $2, occurs_on = $3, start_min = $4,
        end_min = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, int(entry.Slot.DayOfWeek),
		entry.Slot.Date, entry.Slot.Start, entry.Slot.End, entry.UpdatedAt); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM class_schedules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// DeleteByClass removes all slots for a class, used when a class is cancelled.
func (r *ScheduleRepository) DeleteByClass(ctx context.Context, classID string) error {
	const query = `DELETE FROM class_schedules WHERE class_id = $1`
	if _, err := r.db.ExecContext(ctx, query, classID); err != nil {
		return fmt.Errorf("delete class schedules: %w", err)
	}
	return nil
}
