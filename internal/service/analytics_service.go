package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type analyticsRepository interface {
	MonthlyRevenue(ctx context.Context, months int) ([]models.MonthlyRevenue, error)
	TopClassesByRevenue(ctx context.Context, limit int) ([]models.ClassRevenue, error)
	TotalRevenue(ctx context.Context) (classTotal, membershipTotal float64, err error)
}

type liveReservationCounter interface {
	CountLive(ctx context.Context) (int64, error)
}

const revenueSummaryCacheKey = "analytics:revenue:summary"

// AnalyticsService aggregates revenue reporting and ops snapshots for the
// admin dashboard.
type AnalyticsService struct {
	repo         analyticsRepository
	reservations liveReservationCounter
	metrics      *MetricsService
	cache        *CacheService
	cacheTTL     time.Duration
	enabled      bool
	logger       *zap.Logger
}

// NewAnalyticsService constructs AnalyticsService.
func NewAnalyticsService(repo analyticsRepository, reservations liveReservationCounter, metrics *MetricsService, cache *CacheService, cacheTTL time.Duration, enabled bool, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		repo:         repo,
		reservations: reservations,
		metrics:      metrics,
		cache:        cache,
		cacheTTL:     cacheTTL,
		enabled:      enabled,
		logger:       logger,
	}
}

// RevenueSummary builds the revenue dashboard payload, served from cache
// when a fresh copy exists.
func (s *AnalyticsService) RevenueSummary(ctx context.Context) (*models.RevenueSummary, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "analytics is disabled")
	}

	var cached models.RevenueSummary
	if hit, _ := s.cache.Get(ctx, revenueSummaryCacheKey, &cached); hit {
		return &cached, nil
	}

	classTotal, membershipTotal, err := s.repo.TotalRevenue(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revenue totals")
	}
	monthly, err := s.repo.MonthlyRevenue(ctx, 12)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly revenue")
	}
	topClasses, err := s.repo.TopClassesByRevenue(ctx, 10)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class revenue")
	}

	summary := &models.RevenueSummary{
		TotalRevenue:      classTotal + membershipTotal,
		ClassRevenue:      classTotal,
		MembershipRevenue: membershipTotal,
		Monthly:           monthly,
		TopClasses:        topClasses,
		GeneratedAt:       time.Now().UTC(),
	}
	_ = s.cache.Set(ctx, revenueSummaryCacheKey, summary, s.cacheTTL)
	return summary, nil
}

// SystemMetrics returns the ops snapshot including live seat holds.
func (s *AnalyticsService) SystemMetrics(ctx context.Context) (*models.SystemMetrics, error) {
	var active int64
	if s.reservations != nil {
		count, err := s.reservations.CountLive(ctx)
		if err != nil {
			s.logger.Warn("failed to count live reservations", zap.Error(err))
		} else {
			active = count
		}
	}
	snapshot := s.metrics.Snapshot(active)
	return &snapshot, nil
}
