package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/gateway"
	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
	"github.com/fitzone/booking-api/pkg/export"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, orderID string, from, to models.PaymentStatus) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Payment, error)
	CreateReconciliation(ctx context.Context, rec *models.Reconciliation) error
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderResponse, error)
	QueryOrder(ctx context.Context, orderID string) (*gateway.OrderStatus, error)
}

type membershipWindows interface {
	FindLatestWindow(ctx context.Context, userID string) (*models.MembershipWindow, error)
	Create(ctx context.Context, window *models.MembershipWindow) error
	ExtendWindow(ctx context.Context, id string, newEnd time.Time) error
}

// BuyMembershipRequest is the membership purchase payload.
type BuyMembershipRequest struct {
	Months int `json:"months" validate:"required,min=1,max=36"`
}

// PaymentService creates gateway orders, polls their settlement, and applies
// paid membership purchases to the user's membership window.
type PaymentService struct {
	repo        paymentRepository
	gateway     paymentGateway
	memberships membershipWindows
	monthlyFee  float64
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, gw paymentGateway, memberships membershipWindows, monthlyFee float64, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:        repo,
		gateway:     gw,
		memberships: memberships,
		monthlyFee:  monthlyFee,
		validator:   validate,
		logger:      logger,
	}
}

// CreateClassOrder opens a gateway order for a class fee and records the
// pending transaction.
func (s *PaymentService) CreateClassOrder(ctx context.Context, userID string, class *models.Class) (*models.PaymentOrder, error) {
	orderID := gateway.NewOrderID()
	resp, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		OrderID:     orderID,
		Amount:      int64(class.Fee),
		Description: fmt.Sprintf("Class registration: %s", class.Name),
		UserRef:     userID,
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("user_id", userID),
			zap.String("class_id", class.ID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, appErrors.ErrExternalService.Message)
	}
	payment := &models.Payment{
		OrderID: orderID,
		UserID:  userID,
		ClassID: &class.ID,
		Kind:    models.PaymentKindClass,
		Amount:  class.Fee,
		Status:  models.PaymentStatusPending,
		Method:  "GATEWAY",
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	return &models.PaymentOrder{
		OrderID:  orderID,
		OrderURL: resp.OrderURL,
		QRCode:   resp.QRCode,
		Amount:   class.Fee,
	}, nil
}

// RecordFreePayment records a zero-amount transaction for a free class so
// the completion step has a paid order to verify.
func (s *PaymentService) RecordFreePayment(ctx context.Context, userID, classID string) (*models.Payment, error) {
	payment := &models.Payment{
		OrderID: gateway.NewOrderID(),
		UserID:  userID,
		ClassID: &classID,
		Kind:    models.PaymentKindClass,
		Amount:  0,
		Status:  models.PaymentStatusPaid,
		Method:  "FREE",
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("record free payment: %w", err)
	}
	return payment, nil
}

// CreateMembershipOrder opens a gateway order for a membership purchase.
func (s *PaymentService) CreateMembershipOrder(ctx context.Context, userID string, req BuyMembershipRequest) (*models.PaymentOrder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid membership purchase payload")
	}
	amount := s.monthlyFee * float64(req.Months)
	orderID := gateway.NewOrderID()
	resp, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		OrderID:     orderID,
		Amount:      int64(amount),
		Description: fmt.Sprintf("Membership: %d month(s)", req.Months),
		UserRef:     userID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, appErrors.ErrExternalService.Message)
	}
	payment := &models.Payment{
		OrderID: orderID,
		UserID:  userID,
		Kind:    models.PaymentKindMembership,
		Amount:  amount,
		Months:  req.Months,
		Status:  models.PaymentStatusPending,
		Method:  "GATEWAY",
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	return &models.PaymentOrder{
		OrderID:  orderID,
		OrderURL: resp.OrderURL,
		QRCode:   resp.QRCode,
		Amount:   amount,
	}, nil
}

// CheckStatus polls the settlement state of an order, persisting the
// transition the first time a terminal state is observed.
func (s *PaymentService) CheckStatus(ctx context.Context, userID, orderID string) (*models.PaymentStatusResult, error) {
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
	}

	switch payment.Status {
	case models.PaymentStatusPaid:
		return statusResult(models.PaymentCodeSuccess, "payment completed", payment), nil
	case models.PaymentStatusFailed:
		return statusResult(models.PaymentCodeFailed, "payment failed", payment), nil
	case models.PaymentStatusCancelled:
		return statusResult(models.PaymentCodeCancelled, "payment cancelled", payment), nil
	}

	status, err := s.gateway.QueryOrder(ctx, orderID)
	if err != nil {
		s.logger.Error("gateway status query failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, appErrors.ErrExternalService.Message)
	}
	switch {
	case status.Paid:
		if err := s.markPaid(ctx, payment); err != nil {
			return nil, err
		}
		return statusResult(models.PaymentCodeSuccess, "payment completed", payment), nil
	case status.Processing:
		return statusResult(models.PaymentCodePending, "payment is processing", payment), nil
	default:
		if err := s.repo.UpdateStatus(ctx, orderID, models.PaymentStatusPending, models.PaymentStatusFailed); err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
		}
		payment.Status = models.PaymentStatusFailed
		return statusResult(models.PaymentCodeFailed, status.Message, payment), nil
	}
}

// VerifyPaid ensures an order is settled, polling the gateway once when the
// stored transaction is still pending.
func (s *PaymentService) VerifyPaid(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	switch payment.Status {
	case models.PaymentStatusPaid:
		return payment, nil
	case models.PaymentStatusPending:
		status, err := s.gateway.QueryOrder(ctx, orderID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, appErrors.ErrExternalService.Message)
		}
		if !status.Paid {
			return nil, appErrors.ErrPaymentFailed
		}
		if err := s.markPaid(ctx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	default:
		return nil, appErrors.ErrPaymentFailed
	}
}

// RecordReconciliation persists a commit failure for manual follow-up.
func (s *PaymentService) RecordReconciliation(ctx context.Context, rec *models.Reconciliation) error {
	return s.repo.CreateReconciliation(ctx, rec)
}

// History returns the user's payment history.
func (s *PaymentService) History(ctx context.Context, userID string, limit int) ([]models.Payment, error) {
	payments, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// Receipt builds a printable receipt for a settled order.
func (s *PaymentService) Receipt(ctx context.Context, userID, orderID string) (*export.Receipt, error) {
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
	}
	if payment.Status != models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "payment is not settled")
	}
	lines := []export.ReceiptLine{
		{Label: "Kind", Value: string(payment.Kind)},
		{Label: "Amount", Value: fmt.Sprintf("%.0f", payment.Amount)},
		{Label: "Method", Value: payment.Method},
		{Label: "Paid at", Value: payment.UpdatedAt.Format(time.RFC3339)},
	}
	if payment.Months > 0 {
		lines = append(lines, export.ReceiptLine{Label: "Months", Value: fmt.Sprintf("%d", payment.Months)})
	}
	return &export.Receipt{
		Title:   "FitZone Payment Receipt",
		OrderID: payment.OrderID,
		Lines:   lines,
		Footer:  "Thank you for training with us.",
	}, nil
}

func (s *PaymentService) markPaid(ctx context.Context, payment *models.Payment) error {
	if err := s.repo.UpdateStatus(ctx, payment.OrderID, models.PaymentStatusPending, models.PaymentStatusPaid); err != nil {
		if err == sql.ErrNoRows {
			// Another poller already applied the transition.
			payment.Status = models.PaymentStatusPaid
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	payment.Status = models.PaymentStatusPaid
	if payment.Kind == models.PaymentKindMembership {
		if err := s.applyMembership(ctx, payment); err != nil {
			s.logger.Error("failed to apply membership purchase",
				zap.String("order_id", payment.OrderID), zap.Error(err))
			rec := &models.Reconciliation{
				UserID:  payment.UserID,
				ClassID: "",
				OrderID: payment.OrderID,
				Reason:  "membership apply failed",
			}
			if recErr := s.repo.CreateReconciliation(ctx, rec); recErr != nil {
				s.logger.Error("failed to persist reconciliation record",
					zap.String("order_id", payment.OrderID), zap.Error(recErr))
			}
		}
	}
	return nil
}

// applyMembership extends the user's latest window when it still runs, or
// opens a new one starting now.
func (s *PaymentService) applyMembership(ctx context.Context, payment *models.Payment) error {
	now := time.Now().UTC()
	duration := time.Duration(payment.Months) * 30 * 24 * time.Hour

	latest, err := s.memberships.FindLatestWindow(ctx, payment.UserID)
	if err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("load membership window: %w", err)
		}
		latest = nil
	}
	if latest != nil && latest.EndDate.After(now) {
		return s.memberships.ExtendWindow(ctx, latest.ID, latest.EndDate.Add(duration))
	}
	window := &models.MembershipWindow{
		UserID:    payment.UserID,
		StartDate: now,
		EndDate:   now.Add(duration),
	}
	return s.memberships.Create(ctx, window)
}

func statusResult(code int, message string, payment *models.Payment) *models.PaymentStatusResult {
	return &models.PaymentStatusResult{
		Code:        code,
		IsPending:   code == models.PaymentCodePending,
		IsCancelled: code == models.PaymentCodeCancelled,
		Message:     message,
		Transaction: payment,
	}
}
