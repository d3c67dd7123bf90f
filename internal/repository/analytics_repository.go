package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fitzone/booking-api/internal/models"
)

// AnalyticsRepository aggregates revenue figures for the admin dashboard.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// MonthlyRevenue buckets paid transactions per calendar month.
func (r *AnalyticsRepository) MonthlyRevenue(ctx context.Context, months int) ([]models.MonthlyRevenue, error) {
	if months <= 0 || months > 36 {
		months = 12
	}
	const query = `SELECT TO_CHAR(DATE_TRUNC('month', created_at), 'YYYY-MM') AS month,
        COALESCE(SUM(amount) FILTER (WHERE kind = $1), 0) AS class_revenue,
        COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0) AS membership_revenue
        FROM payments WHERE status = $3 AND created_at >= DATE_TRUNC('month', NOW()) - ($4 || ' months')::interval
        GROUP BY 1 ORDER BY 1`
	var rows []models.MonthlyRevenue
	if err := r.db.SelectContext(ctx, &rows, query,
		models.PaymentKindClass, models.PaymentKindMembership, models.PaymentStatusPaid, months); err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	return rows, nil
}

// TopClassesByRevenue ranks classes by paid registration revenue.
func (r *AnalyticsRepository) TopClassesByRevenue(ctx context.Context, limit int) ([]models.ClassRevenue, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	const query = `SELECT p.class_id, c.name AS class_name, COUNT(*) AS payments, COALESCE(SUM(p.amount), 0) AS revenue
        FROM payments p JOIN classes c ON c.id = p.class_id
        WHERE p.status = $1 AND p.kind = $2
        GROUP BY p.class_id, c.name ORDER BY revenue DESC LIMIT $3`
	var rows []models.ClassRevenue
	if err := r.db.SelectContext(ctx, &rows, query, models.PaymentStatusPaid, models.PaymentKindClass, limit); err != nil {
		return nil, fmt.Errorf("top classes: %w", err)
	}
	return rows, nil
}

// TotalRevenue sums paid transactions split by kind.
func (r *AnalyticsRepository) TotalRevenue(ctx context.Context) (classTotal, membershipTotal float64, err error) {
	const query = `SELECT COALESCE(SUM(amount) FILTER (WHERE kind = $1), 0) AS class_revenue,
        COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0) AS membership_revenue
        FROM payments WHERE status = $3`
	var row struct {
		ClassRevenue      float64 `db:"class_revenue"`
		MembershipRevenue float64 `db:"membership_revenue"`
	}
	if err := r.db.GetContext(ctx, &row, query,
		models.PaymentKindClass, models.PaymentKindMembership, models.PaymentStatusPaid); err != nil {
		return 0, 0, fmt.Errorf("total revenue: %w", err)
	}
	return row.ClassRevenue, row.MembershipRevenue, nil
}
