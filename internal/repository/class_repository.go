package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitzone/booking-api/internal/models"
)

// ClassRepository handles persistence of classes and their seat counters.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `c.id, c.trainer_id, c.name, c.description, c.fee, c.max_attendees,
        c.current_attendees, c.reserved_count, c.status, c.start_date, c.end_date, c.created_at, c.updated_at`

// List returns classes filtered by the provided criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes c LEFT JOIN users u ON u.id = c.trainer_id`
	var conditions []string
	var args []interface{}

	if filter.TrainerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.trainer_id = $%d", len(args)+1))
		args = append(args, filter.TrainerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "c.name",
		"start_date": "c.start_date",
		"fee":        "c.fee",
		"created_at": "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, u.full_name AS trainer_name %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		classColumns, base+clause, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes c WHERE c.id = $1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID returns a class with trainer info.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name AS trainer_name
        FROM classes c LEFT JOIN users u ON u.id = c.trainer_id WHERE c.id = $1`, classColumns)
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.Status == "" {
		class.Status = models.ClassStatusPending
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, trainer_id, name, description, fee, max_attendees,
        current_attendees, reserved_count, status, start_date, end_date, created_at, updated_at)
        VALUES (:id, :trainer_id, :name, :description, :fee, :max_attendees,
        :current_attendees, :reserved_count, :status, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies mutable class fields.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, description = :description, fee = :fee,
        max_attendees = :max_attendees, status = :status, start_date = :start_date,
        end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// ReserveSeat atomically claims a provisional seat when capacity allows.
// The conditional update is the admission-control gate: concurrent callers
// race on a single row and at most capacity holds can exist at once.
func (r *ClassRepository) ReserveSeat(ctx context.Context, classID string) (bool, error) {
	const query = `UPDATE classes SET reserved_count = reserved_count + 1, updated_at = NOW()
        WHERE id = $1 AND status = $2 AND current_attendees + reserved_count < max_attendees`
	res, err := r.db.ExecContext(ctx, query, classID, models.ClassStatusActive)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat rows: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSeat returns a provisional hold to the pool. Floored at zero so a
// duplicate release never corrupts the counter.
func (r *ClassRepository) ReleaseSeat(ctx context.Context, classID string) error {
	const query = `UPDATE classes SET reserved_count = GREATEST(reserved_count - 1, 0), updated_at = NOW()
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, classID); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

// CommitSeat converts a provisional hold into a confirmed attendee.
func (r *ClassRepository) CommitSeat(ctx context.Context, classID string) error {
	const query = `UPDATE classes SET reserved_count = GREATEST(reserved_count - 1, 0),
        current_attendees = current_attendees + 1, updated_at = NOW()
        WHERE id = $1 AND current_attendees < max_attendees`
	res, err := r.db.ExecContext(ctx, query, classID)
	if err != nil {
		return fmt.Errorf("commit seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit seat rows: %w", err)
	}
	if affected != 1 {
		return sql.ErrNoRows
	}
	return nil
}
