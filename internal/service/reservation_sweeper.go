package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	"github.com/fitzone/booking-api/pkg/jobs"
)

type expiredReservationRepository interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ReservationStatus) error
}

type seatReleaser interface {
	ReleaseSeat(ctx context.Context, classID string) error
}

type expiryMetrics interface {
	ReservationExpired()
}

// ReservationSweeper reclaims seat holds whose TTL elapsed without the flow
// finishing. Sweeps run on a worker queue so a slow pass never blocks the
// ticker.
type ReservationSweeper struct {
	reservations expiredReservationRepository
	classes      seatReleaser
	metrics      expiryMetrics
	queue        *jobs.Queue
	interval     time.Duration
	logger       *zap.Logger

	cancel context.CancelFunc
}

// NewReservationSweeper constructs the sweeper with its worker queue.
func NewReservationSweeper(reservations expiredReservationRepository, classes seatReleaser, metrics expiryMetrics, interval time.Duration, workers int, logger *zap.Logger) *ReservationSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	s := &ReservationSweeper{
		reservations: reservations,
		classes:      classes,
		metrics:      metrics,
		interval:     interval,
		logger:       logger,
	}
	s.queue = jobs.NewQueue("reservation-sweeper", s.sweep, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start launches the worker queue and the sweep ticker.
func (s *ReservationSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job := jobs.Job{ID: uuid.NewString(), Type: "sweep-expired"}
				if err := s.queue.Enqueue(job); err != nil {
					s.logger.Warn("failed to enqueue sweep", zap.Error(err))
				}
			}
		}
	}()
	s.logger.Info("reservation sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the ticker and drains the workers.
func (s *ReservationSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

func (s *ReservationSweeper) sweep(ctx context.Context, _ jobs.Job) error {
	now := time.Now().UTC()
	expired, err := s.reservations.ListExpired(ctx, now, 100)
	if err != nil {
		return err
	}
	for _, reservation := range expired {
		// Guarded transition: a concurrent completion or cancel wins and
		// the hold is left alone.
		if err := s.reservations.UpdateStatus(ctx, reservation.ID, reservation.Status, models.ReservationStatusExpired); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			s.logger.Error("failed to expire reservation",
				zap.String("reservation_id", reservation.ID), zap.Error(err))
			continue
		}
		if err := s.classes.ReleaseSeat(ctx, reservation.ClassID); err != nil {
			s.logger.Error("failed to release seat for expired reservation",
				zap.String("reservation_id", reservation.ID),
				zap.String("class_id", reservation.ClassID),
				zap.Error(err))
			continue
		}
		if s.metrics != nil {
			s.metrics.ReservationExpired()
		}
		s.logger.Info("expired reservation reclaimed",
			zap.String("reservation_id", reservation.ID),
			zap.String("class_id", reservation.ClassID),
			zap.String("user_id", reservation.UserID))
	}
	return nil
}
