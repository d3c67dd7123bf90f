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

// PaymentRepository handles payment transactions and reconciliation rows.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, order_id, user_id, class_id, kind, amount, months, status, method, created_at, updated_at`

// Create inserts a payment transaction.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, order_id, user_id, class_id, kind, amount, months, status, method, created_at, updated_at)
        VALUES (:id, :order_id, :user_id, :class_id, :kind, :amount, :months, :status, :method, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByOrderID returns a payment by its gateway order identifier.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1 LIMIT 1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatus transitions a payment from one status to another. The current
// status is part of the predicate so duplicate gateway callbacks are no-ops.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID string, from, to models.PaymentStatus) error {
	const query = `UPDATE payments SET status = $3, updated_at = NOW() WHERE order_id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, orderID, from, to)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment rows: %w", err)
	}
	if affected != 1 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByUser returns a user's payment history, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// CreateReconciliation records a payment whose registration commit failed.
func (r *PaymentRepository) CreateReconciliation(ctx context.Context, rec *models.Reconciliation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reconciliations (id, user_id, class_id, order_id, reason, resolved, created_at)
        VALUES (:id, :user_id, :class_id, :order_id, :reason, :resolved, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create reconciliation: %w", err)
	}
	return nil
}

// ListUnresolvedReconciliations returns open reconciliation rows for review.
func (r *PaymentRepository) ListUnresolvedReconciliations(ctx context.Context) ([]models.Reconciliation, error) {
	const query = `SELECT id, user_id, class_id, order_id, reason, resolved, created_at
        FROM reconciliations WHERE resolved = FALSE ORDER BY created_at`
	var recs []models.Reconciliation
	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	return recs, nil
}
