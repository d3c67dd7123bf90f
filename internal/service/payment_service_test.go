package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/internal/gateway"
	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type fakePaymentRepo struct {
	payments        map[string]*models.Payment
	reconciliations []models.Reconciliation
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if f.payments == nil {
		f.payments = make(map[string]*models.Payment)
	}
	copied := *payment
	f.payments[payment.OrderID] = &copied
	return nil
}

func (f *fakePaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	if p, ok := f.payments[orderID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakePaymentRepo) UpdateStatus(ctx context.Context, orderID string, from, to models.PaymentStatus) error {
	p, ok := f.payments[orderID]
	if !ok || p.Status != from {
		return sql.ErrNoRows
	}
	p.Status = to
	return nil
}

func (f *fakePaymentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) CreateReconciliation(ctx context.Context, rec *models.Reconciliation) error {
	f.reconciliations = append(f.reconciliations, *rec)
	return nil
}

type fakeGateway struct {
	status    gateway.OrderStatus
	statusErr error
	createErr error
	created   []gateway.OrderRequest
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &gateway.OrderResponse{OrderURL: "https://pay.example/" + req.OrderID}, nil
}

func (f *fakeGateway) QueryOrder(ctx context.Context, orderID string) (*gateway.OrderStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	copied := f.status
	return &copied, nil
}

type fakeMembershipWindows struct {
	latest   *models.MembershipWindow
	created  []models.MembershipWindow
	extended map[string]time.Time
}

func (f *fakeMembershipWindows) FindLatestWindow(ctx context.Context, userID string) (*models.MembershipWindow, error) {
	if f.latest == nil {
		return nil, sql.ErrNoRows
	}
	copied := *f.latest
	return &copied, nil
}

func (f *fakeMembershipWindows) Create(ctx context.Context, window *models.MembershipWindow) error {
	f.created = append(f.created, *window)
	return nil
}

func (f *fakeMembershipWindows) ExtendWindow(ctx context.Context, id string, newEnd time.Time) error {
	if f.extended == nil {
		f.extended = make(map[string]time.Time)
	}
	f.extended[id] = newEnd
	return nil
}

func newPaymentFixture() (*fakePaymentRepo, *fakeGateway, *fakeMembershipWindows, *PaymentService) {
	repo := &fakePaymentRepo{}
	gw := &fakeGateway{}
	windows := &fakeMembershipWindows{}
	svc := NewPaymentService(repo, gw, windows, 300000, nil, nil)
	return repo, gw, windows, svc
}

func TestCreateClassOrderRecordsPendingPayment(t *testing.T) {
	repo, gw, _, svc := newPaymentFixture()
	class := &models.Class{ID: "yoga", Name: "Morning Yoga", Fee: 250000}

	order, err := svc.CreateClassOrder(context.Background(), "user-1", class)
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, "https://pay.example/"+order.OrderID, order.OrderURL)
	require.Len(t, gw.created, 1)
	assert.Equal(t, int64(250000), gw.created[0].Amount)

	stored := repo.payments[order.OrderID]
	require.NotNil(t, stored)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, models.PaymentKindClass, stored.Kind)
}

func TestCreateClassOrderWrapsGatewayFailure(t *testing.T) {
	_, gw, _, svc := newPaymentFixture()
	gw.createErr = assert.AnError

	_, err := svc.CreateClassOrder(context.Background(), "user-1", &models.Class{ID: "yoga", Fee: 100})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErr.Code)
}

func TestRecordFreePaymentIsSettledImmediately(t *testing.T) {
	repo, _, _, svc := newPaymentFixture()

	payment, err := svc.RecordFreePayment(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	assert.Zero(t, payment.Amount)
	assert.Equal(t, "FREE", payment.Method)
	assert.NotNil(t, repo.payments[payment.OrderID])
}

func TestCheckStatusSettlesPendingPayment(t *testing.T) {
	repo, gw, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Kind: models.PaymentKindClass,
			Amount: 250000, Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Paid: true}

	result, err := svc.CheckStatus(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCodeSuccess, result.Code)
	assert.False(t, result.IsPending)
	assert.Equal(t, models.PaymentStatusPaid, repo.payments["order-1"].Status)
}

func TestCheckStatusPendingKeepsPolling(t *testing.T) {
	repo, gw, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Processing: true}

	result, err := svc.CheckStatus(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCodePending, result.Code)
	assert.True(t, result.IsPending)
	assert.Equal(t, models.PaymentStatusPending, repo.payments["order-1"].Status)
}

func TestCheckStatusMarksFailure(t *testing.T) {
	repo, gw, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Message: "insufficient funds"}

	result, err := svc.CheckStatus(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCodeFailed, result.Code)
	assert.Equal(t, models.PaymentStatusFailed, repo.payments["order-1"].Status)
}

func TestCheckStatusRejectsForeignOrder(t *testing.T) {
	repo, _, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-2", Status: models.PaymentStatusPaid},
	}

	_, err := svc.CheckStatus(context.Background(), "user-1", "order-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPaidMembershipOrderExtendsRunningWindow(t *testing.T) {
	repo, gw, windows, svc := newPaymentFixture()
	now := time.Now().UTC()
	windows.latest = &models.MembershipWindow{ID: "mw-1", UserID: "user-1",
		StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0)}
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Kind: models.PaymentKindMembership,
			Months: 2, Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Paid: true}

	_, err := svc.CheckStatus(context.Background(), "user-1", "order-1")
	require.NoError(t, err)

	newEnd, ok := windows.extended["mw-1"]
	require.True(t, ok)
	assert.Equal(t, windows.latest.EndDate.Add(2*30*24*time.Hour), newEnd)
	assert.Empty(t, windows.created)
}

func TestPaidMembershipOrderOpensNewWindowWhenLapsed(t *testing.T) {
	repo, gw, windows, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Kind: models.PaymentKindMembership,
			Months: 1, Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Paid: true}

	_, err := svc.CheckStatus(context.Background(), "user-1", "order-1")
	require.NoError(t, err)

	require.Len(t, windows.created, 1)
	created := windows.created[0]
	assert.Equal(t, "user-1", created.UserID)
	assert.WithinDuration(t, created.StartDate.Add(30*24*time.Hour), created.EndDate, time.Second)
}

func TestVerifyPaidPollsGatewayForPendingOrder(t *testing.T) {
	repo, gw, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Kind: models.PaymentKindClass,
			Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Paid: true}

	payment, err := svc.VerifyPaid(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	assert.Equal(t, models.PaymentStatusPaid, repo.payments["order-1"].Status)
}

func TestVerifyPaidRejectsUnsettledOrder(t *testing.T) {
	repo, gw, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Status: models.PaymentStatusPending},
	}
	gw.status = gateway.OrderStatus{Processing: true}

	_, err := svc.VerifyPaid(context.Background(), "order-1")
	require.ErrorIs(t, err, appErrors.ErrPaymentFailed)
}

func TestReceiptRequiresSettledOwnPayment(t *testing.T) {
	repo, _, _, svc := newPaymentFixture()
	repo.payments = map[string]*models.Payment{
		"order-1": {OrderID: "order-1", UserID: "user-1", Kind: models.PaymentKindClass,
			Amount: 250000, Method: "GATEWAY", Status: models.PaymentStatusPaid,
			UpdatedAt: time.Now().UTC()},
		"order-2": {OrderID: "order-2", UserID: "user-1", Status: models.PaymentStatusPending},
	}

	receipt, err := svc.Receipt(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", receipt.OrderID)
	assert.NotEmpty(t, receipt.Lines)

	_, err = svc.Receipt(context.Background(), "user-2", "order-1")
	require.Error(t, err)

	_, err = svc.Receipt(context.Background(), "user-1", "order-2")
	require.Error(t, err)
}
