package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type classSeatRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ReserveSeat(ctx context.Context, classID string) (bool, error)
	ReleaseSeat(ctx context.Context, classID string) error
	CommitSeat(ctx context.Context, classID string) error
}

type reservationRepository interface {
	FindLive(ctx context.Context, userID, classID string) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	UpdateStatus(ctx context.Context, id string, from, to models.ReservationStatus) error
	CancelLive(ctx context.Context, userID, classID string, to models.ReservationStatus) (int64, error)
}

type memberWriter interface {
	IsJoined(ctx context.Context, userID, classID string) (bool, error)
	Create(ctx context.Context, member *models.ClassMember) error
}

type membershipReader interface {
	FindActiveWindow(ctx context.Context, userID string, at time.Time) (*models.MembershipWindow, error)
}

type userConflictChecker interface {
	CheckUserSchedule(ctx context.Context, userID, classID string) (*models.UserConflictResult, error)
}

type paymentCollector interface {
	CreateClassOrder(ctx context.Context, userID string, class *models.Class) (*models.PaymentOrder, error)
	RecordFreePayment(ctx context.Context, userID, classID string) (*models.Payment, error)
	VerifyPaid(ctx context.Context, orderID string) (*models.Payment, error)
	RecordReconciliation(ctx context.Context, rec *models.Reconciliation) error
}

type bookingMetrics interface {
	ReservationCreated()
	ReservationReleased()
	RegistrationCompleted()
	PaymentFailed()
	ReconciliationAlert()
}

// RegistrationService drives the admission flow for joining a class:
// a seat hold, the eligibility checks, payment, and the final commit.
// Every failure after the hold releases the seat so abandoned attempts
// never pin capacity.
type RegistrationService struct {
	classes      classSeatRepository
	reservations reservationRepository
	members      memberWriter
	memberships  membershipReader
	conflicts    userConflictChecker
	payments     paymentCollector
	metrics      bookingMetrics
	holdTTL      time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(
	classes classSeatRepository,
	reservations reservationRepository,
	members memberWriter,
	memberships membershipReader,
	conflicts userConflictChecker,
	payments paymentCollector,
	metrics bookingMetrics,
	holdTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	return &RegistrationService{
		classes:      classes,
		reservations: reservations,
		members:      members,
		memberships:  memberships,
		conflicts:    conflicts,
		payments:     payments,
		metrics:      metrics,
		holdTTL:      holdTTL,
		validator:    validate,
		logger:       logger,
	}
}

// Queue claims a provisional seat for the user. Re-queueing while a live
// reservation exists returns that reservation instead of claiming twice.
func (s *RegistrationService) Queue(ctx context.Context, userID, classID string) (*models.Reservation, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.Status != models.ClassStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class is not open for registration")
	}

	joined, err := s.members.IsJoined(ctx, userID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if joined {
		return nil, appErrors.ErrAlreadyJoined
	}

	if existing, err := s.reservations.FindLive(ctx, userID, classID); err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reservations")
	}

	claimed, err := s.classes.ReserveSeat(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
	}
	if !claimed {
		return nil, appErrors.ErrClassFull
	}

	reservation := &models.Reservation{
		UserID:    userID,
		ClassID:   classID,
		Status:    models.ReservationStatusReserved,
		ExpiresAt: time.Now().UTC().Add(s.holdTTL),
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		if releaseErr := s.classes.ReleaseSeat(ctx, classID); releaseErr != nil {
			s.logger.Error("failed to release seat after reservation create failure",
				zap.String("class_id", classID), zap.Error(releaseErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}
	if s.metrics != nil {
		s.metrics.ReservationCreated()
	}
	s.logger.Info("seat reserved",
		zap.String("user_id", userID),
		zap.String("class_id", classID),
		zap.Time("expires_at", reservation.ExpiresAt))
	return reservation, nil
}

// ValidateConditions runs the pre-payment eligibility checks in order:
// already joined, active membership, membership covers the class window,
// and schedule conflicts. The first failing check wins.
func (s *RegistrationService) ValidateConditions(ctx context.Context, userID, classID string) (*models.Eligibility, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	joined, err := s.members.IsJoined(ctx, userID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if joined {
		return &models.Eligibility{Code: models.EligibilityAlreadyJoined}, nil
	}

	now := time.Now().UTC()
	window, err := s.memberships.FindActiveWindow(ctx, userID, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.Eligibility{Code: models.EligibilityMembershipRequired}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if window.EndDate.Before(class.EndDate) {
		months := monthsNeeded(window.EndDate, class.EndDate)
		return &models.Eligibility{
			Code:          models.EligibilityMembershipExpiring,
			MonthsNeeded:  months,
			MembershipEnd: &window.EndDate,
			ClassEnd:      &class.EndDate,
		}, nil
	}

	conflicts, err := s.conflicts.CheckUserSchedule(ctx, userID, classID)
	if err != nil {
		return nil, err
	}
	if conflicts.HasConflict {
		return &models.Eligibility{
			Code:      models.EligibilityScheduleConflict,
			Conflicts: conflicts.Conflicts,
		}, nil
	}

	return &models.Eligibility{Code: models.EligibilityOK}, nil
}

// CollectPayment moves a held reservation to payment. Paid classes get a
// gateway order and wait for completion; free classes record a zero-amount
// payment and complete immediately.
func (s *RegistrationService) CollectPayment(ctx context.Context, userID, classID string) (*models.RegistrationResult, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	reservation, err := s.reservations.FindLive(ctx, userID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrReservationNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}

	if class.Fee <= 0 {
		payment, err := s.payments.RecordFreePayment(ctx, userID, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record free registration")
		}
		if err := s.Complete(ctx, userID, classID, payment.OrderID); err != nil {
			return nil, err
		}
		return &models.RegistrationResult{Success: true, Message: "registration completed"}, nil
	}

	order, err := s.payments.CreateClassOrder(ctx, userID, class)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PaymentFailed()
		}
		return nil, err
	}
	if reservation.Status == models.ReservationStatusReserved {
		if err := s.reservations.UpdateStatus(ctx, reservation.ID,
			models.ReservationStatusReserved, models.ReservationStatusAwaitingPayment); err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
		}
	}
	return &models.RegistrationResult{
		Success:   false,
		Message:   "payment required",
		OrderURL:  order.OrderURL,
		AmountDue: order.Amount,
	}, nil
}

// Complete converts a paid hold into a confirmed class membership. A payment
// that was captured but cannot be committed is recorded for reconciliation
// rather than refunded automatically.
func (s *RegistrationService) Complete(ctx context.Context, userID, classID, orderID string) error {
	reservation, err := s.reservations.FindLive(ctx, userID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.ErrReservationNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}

	payment, err := s.payments.VerifyPaid(ctx, orderID)
	if err != nil {
		return err
	}
	if payment.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
	}

	if err := s.classes.CommitSeat(ctx, classID); err != nil {
		return s.reconcile(ctx, userID, classID, orderID, "seat commit failed")
	}
	member := &models.ClassMember{UserID: userID, ClassID: classID, Status: models.MemberStatusActive}
	if err := s.members.Create(ctx, member); err != nil {
		return s.reconcile(ctx, userID, classID, orderID, "member create failed")
	}
	if err := s.reservations.UpdateStatus(ctx, reservation.ID,
		reservation.Status, models.ReservationStatusCompleted); err != nil && err != sql.ErrNoRows {
		s.logger.Error("failed to close reservation after completion",
			zap.String("reservation_id", reservation.ID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RegistrationCompleted()
	}
	s.logger.Info("registration completed",
		zap.String("user_id", userID),
		zap.String("class_id", classID),
		zap.String("order_id", orderID))
	return nil
}

// Cancel releases any live hold the user has on the class. Cancelling when
// no hold exists is a no-op so clients can call it on every failure path.
func (s *RegistrationService) Cancel(ctx context.Context, userID, classID string) error {
	released, err := s.reservations.CancelLive(ctx, userID, classID, models.ReservationStatusCancelled)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reservation")
	}
	for i := int64(0); i < released; i++ {
		if err := s.classes.ReleaseSeat(ctx, classID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
		}
		if s.metrics != nil {
			s.metrics.ReservationReleased()
		}
	}
	if released > 0 {
		s.logger.Info("reservation cancelled",
			zap.String("user_id", userID),
			zap.String("class_id", classID))
	}
	return nil
}

// Register runs the whole admission flow in one call. Re-running the flow
// for a user who already belongs to the class is a no-op success: the seat
// counters are never touched twice. Any failure between the seat hold and
// payment hand-off cancels the hold.
func (s *RegistrationService) Register(ctx context.Context, userID, classID string) (*models.RegistrationResult, error) {
	if _, err := s.Queue(ctx, userID, classID); err != nil {
		if errors.Is(err, appErrors.ErrAlreadyJoined) {
			return alreadyRegistered(), nil
		}
		return nil, err
	}

	eligibility, err := s.ValidateConditions(ctx, userID, classID)
	if err != nil {
		s.cancelQuietly(ctx, userID, classID)
		return nil, err
	}
	if eligibility.Code == models.EligibilityAlreadyJoined {
		s.cancelQuietly(ctx, userID, classID)
		return alreadyRegistered(), nil
	}
	if !eligibility.Eligible() {
		s.cancelQuietly(ctx, userID, classID)
		return nil, eligibilityError(eligibility)
	}

	result, err := s.CollectPayment(ctx, userID, classID)
	if err != nil {
		s.cancelQuietly(ctx, userID, classID)
		return nil, err
	}
	return result, nil
}

func (s *RegistrationService) cancelQuietly(ctx context.Context, userID, classID string) {
	if err := s.Cancel(ctx, userID, classID); err != nil {
		s.logger.Error("failed to cancel reservation during rollback",
			zap.String("user_id", userID),
			zap.String("class_id", classID),
			zap.Error(err))
	}
}

func (s *RegistrationService) reconcile(ctx context.Context, userID, classID, orderID, reason string) error {
	if s.metrics != nil {
		s.metrics.ReconciliationAlert()
	}
	s.logger.Error("payment captured but registration commit failed",
		zap.String("user_id", userID),
		zap.String("class_id", classID),
		zap.String("order_id", orderID),
		zap.String("reason", reason))
	rec := &models.Reconciliation{UserID: userID, ClassID: classID, OrderID: orderID, Reason: reason}
	if err := s.payments.RecordReconciliation(ctx, rec); err != nil {
		s.logger.Error("failed to persist reconciliation record",
			zap.String("order_id", orderID), zap.Error(err))
	}
	return appErrors.ErrReconciliationRequired
}

func alreadyRegistered() *models.RegistrationResult {
	return &models.RegistrationResult{Success: true, Message: "already registered"}
}

// eligibilityError maps a failed check onto its sentinel, attaching the
// remediation payload so the caller can render a specific action.
func eligibilityError(e *models.Eligibility) error {
	switch e.Code {
	case models.EligibilityAlreadyJoined:
		return appErrors.ErrAlreadyJoined
	case models.EligibilityMembershipRequired:
		return appErrors.ErrMembershipRequired
	case models.EligibilityMembershipExpiring:
		detail := models.MembershipExpiringPayload{MonthsNeeded: e.MonthsNeeded}
		if e.MembershipEnd != nil {
			detail.MembershipEnd = *e.MembershipEnd
		}
		if e.ClassEnd != nil {
			detail.ClassEnd = *e.ClassEnd
		}
		return appErrors.WithDetails(appErrors.ErrMembershipExpiring, detail)
	case models.EligibilityScheduleConflict:
		return appErrors.WithDetails(appErrors.ErrScheduleConflict,
			models.ScheduleConflictPayload{Conflicts: e.Conflicts})
	default:
		return nil
	}
}

// monthsNeeded is the number of whole 30-day months required to extend a
// membership ending at membershipEnd through classEnd, rounded up.
func monthsNeeded(membershipEnd, classEnd time.Time) int {
	if !membershipEnd.Before(classEnd) {
		return 0
	}
	days := classEnd.Sub(membershipEnd).Hours() / 24
	return int(math.Ceil(days / 30))
}
