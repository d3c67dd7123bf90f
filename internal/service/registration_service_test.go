package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type fakeClassRepo struct {
	mu          sync.Mutex
	class       models.Class
	commitError error
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.class.ID {
		return nil, sql.ErrNoRows
	}
	c := f.class
	return &c, nil
}

func (f *fakeClassRepo) ReserveSeat(ctx context.Context, classID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.class.Status != models.ClassStatusActive {
		return false, nil
	}
	if f.class.CurrentAttendees+f.class.ReservedCount >= f.class.MaxAttendees {
		return false, nil
	}
	f.class.ReservedCount++
	return true, nil
}

func (f *fakeClassRepo) ReleaseSeat(ctx context.Context, classID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.class.ReservedCount > 0 {
		f.class.ReservedCount--
	}
	return nil
}

func (f *fakeClassRepo) CommitSeat(ctx context.Context, classID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitError != nil {
		return f.commitError
	}
	if f.class.CurrentAttendees >= f.class.MaxAttendees {
		return sql.ErrNoRows
	}
	if f.class.ReservedCount > 0 {
		f.class.ReservedCount--
	}
	f.class.CurrentAttendees++
	return nil
}

func (f *fakeClassRepo) counts() (current, reserved int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.class.CurrentAttendees, f.class.ReservedCount
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	nextID       int
}

func (f *fakeReservationRepo) FindLive(ctx context.Context, userID, classID string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.UserID == userID && r.ClassID == classID && r.Status.Live() {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeReservationRepo) Create(ctx context.Context, reservation *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reservations == nil {
		f.reservations = make(map[string]*models.Reservation)
	}
	f.nextID++
	reservation.ID = fmt.Sprintf("res-%d", f.nextID)
	copied := *reservation
	f.reservations[reservation.ID] = &copied
	return nil
}

func (f *fakeReservationRepo) UpdateStatus(ctx context.Context, id string, from, to models.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok || r.Status != from {
		return sql.ErrNoRows
	}
	r.Status = to
	return nil
}

func (f *fakeReservationRepo) CancelLive(ctx context.Context, userID, classID string, to models.ReservationStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.reservations {
		if r.UserID == userID && r.ClassID == classID && r.Status.Live() {
			r.Status = to
			n++
		}
	}
	return n, nil
}

func (f *fakeReservationRepo) statusOf(id string) models.ReservationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reservations[id]; ok {
		return r.Status
	}
	return ""
}

type fakeMemberRepo struct {
	mu      sync.Mutex
	joined  map[string]bool
	created []models.ClassMember
}

func (f *fakeMemberRepo) IsJoined(ctx context.Context, userID, classID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joined[userID+"/"+classID], nil
}

func (f *fakeMemberRepo) Create(ctx context.Context, member *models.ClassMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joined == nil {
		f.joined = make(map[string]bool)
	}
	f.joined[member.UserID+"/"+member.ClassID] = true
	f.created = append(f.created, *member)
	return nil
}

type fakeMembershipReader struct {
	windows map[string]*models.MembershipWindow
}

func (f *fakeMembershipReader) FindActiveWindow(ctx context.Context, userID string, at time.Time) (*models.MembershipWindow, error) {
	w, ok := f.windows[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *w
	return &copied, nil
}

type fakeConflictChecker struct {
	result models.UserConflictResult
}

func (f *fakeConflictChecker) CheckUserSchedule(ctx context.Context, userID, classID string) (*models.UserConflictResult, error) {
	copied := f.result
	return &copied, nil
}

type fakePaymentCollector struct {
	mu              sync.Mutex
	orders          []models.PaymentOrder
	freePayments    []models.Payment
	reconciliations []models.Reconciliation
	paidOrders      map[string]bool
	orderErr        error
}

func (f *fakePaymentCollector) CreateClassOrder(ctx context.Context, userID string, class *models.Class) (*models.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	order := models.PaymentOrder{
		OrderID:  fmt.Sprintf("order-%d", len(f.orders)+1),
		OrderURL: "https://pay.example/redirect",
		Amount:   class.Fee,
	}
	f.orders = append(f.orders, order)
	return &order, nil
}

func (f *fakePaymentCollector) RecordFreePayment(ctx context.Context, userID, classID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment := models.Payment{
		OrderID: fmt.Sprintf("free-%d", len(f.freePayments)+1),
		UserID:  userID,
		ClassID: &classID,
		Status:  models.PaymentStatusPaid,
	}
	f.freePayments = append(f.freePayments, payment)
	if f.paidOrders == nil {
		f.paidOrders = make(map[string]bool)
	}
	f.paidOrders[payment.OrderID] = true
	copied := payment
	return &copied, nil
}

func (f *fakePaymentCollector) VerifyPaid(ctx context.Context, orderID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.paidOrders[orderID] {
		return nil, appErrors.ErrPaymentFailed
	}
	for _, p := range f.freePayments {
		if p.OrderID == orderID {
			copied := p
			return &copied, nil
		}
	}
	return &models.Payment{OrderID: orderID, Status: models.PaymentStatusPaid}, nil
}

func (f *fakePaymentCollector) RecordReconciliation(ctx context.Context, rec *models.Reconciliation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciliations = append(f.reconciliations, *rec)
	return nil
}

type fakeBookingMetrics struct {
	mu        sync.Mutex
	created   int
	released  int
	expired   int
	completed int
	failed    int
	alerts    int
}

func (f *fakeBookingMetrics) ReservationCreated()    { f.mu.Lock(); f.created++; f.mu.Unlock() }
func (f *fakeBookingMetrics) ReservationReleased()   { f.mu.Lock(); f.released++; f.mu.Unlock() }
func (f *fakeBookingMetrics) ReservationExpired()    { f.mu.Lock(); f.expired++; f.mu.Unlock() }
func (f *fakeBookingMetrics) RegistrationCompleted() { f.mu.Lock(); f.completed++; f.mu.Unlock() }
func (f *fakeBookingMetrics) PaymentFailed()         { f.mu.Lock(); f.failed++; f.mu.Unlock() }
func (f *fakeBookingMetrics) ReconciliationAlert()   { f.mu.Lock(); f.alerts++; f.mu.Unlock() }

type registrationFixture struct {
	classes      *fakeClassRepo
	reservations *fakeReservationRepo
	members      *fakeMemberRepo
	memberships  *fakeMembershipReader
	conflicts    *fakeConflictChecker
	payments     *fakePaymentCollector
	metrics      *fakeBookingMetrics
	svc          *RegistrationService
}

func newRegistrationFixture(fee float64, capacity int) *registrationFixture {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	f := &registrationFixture{
		classes: &fakeClassRepo{class: models.Class{
			ID:           "yoga",
			Name:         "Morning Yoga",
			Fee:          fee,
			MaxAttendees: capacity,
			Status:       models.ClassStatusActive,
			StartDate:    start,
			EndDate:      end,
		}},
		reservations: &fakeReservationRepo{},
		members:      &fakeMemberRepo{},
		memberships: &fakeMembershipReader{windows: map[string]*models.MembershipWindow{
			"user-1": {UserID: "user-1", StartDate: start.AddDate(0, -1, 0), EndDate: end.AddDate(1, 0, 0)},
		}},
		conflicts: &fakeConflictChecker{},
		payments:  &fakePaymentCollector{},
		metrics:   &fakeBookingMetrics{},
	}
	f.svc = NewRegistrationService(
		f.classes, f.reservations, f.members, f.memberships,
		f.conflicts, f.payments, f.metrics, 10*time.Minute, nil, nil)
	return f
}

func TestQueueConcurrentCapacity(t *testing.T) {
	const capacity = 3
	const attempts = 10
	f := newRegistrationFixture(0, capacity)

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Queue(context.Background(), fmt.Sprintf("user-%d", i), "yoga")
		}(i)
	}
	wg.Wait()

	var succeeded, full int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, appErrors.ErrClassFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, attempts-capacity, full)

	current, reserved := f.classes.counts()
	assert.Equal(t, 0, current)
	assert.Equal(t, capacity, reserved)
	assert.Equal(t, capacity, f.metrics.created)
}

func TestQueueReturnsExistingLiveReservation(t *testing.T) {
	f := newRegistrationFixture(0, 5)

	first, err := f.svc.Queue(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	second, err := f.svc.Queue(context.Background(), "user-1", "yoga")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	_, reserved := f.classes.counts()
	assert.Equal(t, 1, reserved)
}

func TestRegisterAlreadyJoinedIsNoOp(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	f.members.joined = map[string]bool{"user-1/yoga": true}

	result, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.True(t, result.Success)

	current, reserved := f.classes.counts()
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, reserved)
	assert.Empty(t, f.members.created)
	assert.Empty(t, f.payments.freePayments)
}

func TestRegisterTwiceKeepsSingleSeat(t *testing.T) {
	f := newRegistrationFixture(0, 5)

	first, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.True(t, second.Success)

	current, reserved := f.classes.counts()
	assert.Equal(t, 1, current)
	assert.Equal(t, 0, reserved)
	require.Len(t, f.members.created, 1)
	require.Len(t, f.payments.freePayments, 1)
}

func TestValidateConditionsMembershipRequired(t *testing.T) {
	f := newRegistrationFixture(0, 5)

	eligibility, err := f.svc.ValidateConditions(context.Background(), "user-without-membership", "yoga")
	require.NoError(t, err)
	assert.Equal(t, models.EligibilityMembershipRequired, eligibility.Code)
}

func TestValidateConditionsMonthsNeeded(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	f.classes.class.EndDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	f.classes.class.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.memberships.windows["user-1"] = &models.MembershipWindow{
		UserID:    "user-1",
		StartDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	eligibility, err := f.svc.ValidateConditions(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.Equal(t, models.EligibilityMembershipExpiring, eligibility.Code)
	assert.Equal(t, 2, eligibility.MonthsNeeded)
}

func TestRegisterMembershipExpiringCarriesMonthsNeeded(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	f.classes.class.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.classes.class.EndDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	f.memberships.windows["user-1"] = &models.MembershipWindow{
		UserID:    "user-1",
		StartDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	_, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.ErrorIs(t, err, appErrors.ErrMembershipExpiring)

	appErr := appErrors.FromError(err)
	detail, ok := appErr.Details.(models.MembershipExpiringPayload)
	require.True(t, ok)
	assert.Equal(t, 2, detail.MonthsNeeded)

	body, marshalErr := json.Marshal(appErr)
	require.NoError(t, marshalErr)
	assert.Contains(t, string(body), `"months_needed":2`)
}

func TestRegisterScheduleConflictCarriesConflictList(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	f.conflicts.result = models.UserConflictResult{
		HasConflict: true,
		Conflicts: []models.ConflictDetail{
			{ExistingClass: models.ExistingClassInfo{ClassID: "boxing", ClassName: "Boxing"}},
		},
	}

	_, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.ErrorIs(t, err, appErrors.ErrScheduleConflict)

	appErr := appErrors.FromError(err)
	detail, ok := appErr.Details.(models.ScheduleConflictPayload)
	require.True(t, ok)
	require.Len(t, detail.Conflicts, 1)
	assert.Equal(t, "boxing", detail.Conflicts[0].ExistingClass.ClassID)

	body, marshalErr := json.Marshal(appErr)
	require.NoError(t, marshalErr)
	assert.Contains(t, string(body), `"conflicts"`)
}

func TestRegisterReleasesSeatOnScheduleConflict(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	f.conflicts.result = models.UserConflictResult{
		HasConflict: true,
		Conflicts: []models.ConflictDetail{
			{ExistingClass: models.ExistingClassInfo{ClassID: "boxing", ClassName: "Boxing"}},
		},
	}

	_, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.ErrorIs(t, err, appErrors.ErrScheduleConflict)

	current, reserved := f.classes.counts()
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 1, f.metrics.released)
}

func TestRegisterFreeClassCompletesImmediately(t *testing.T) {
	f := newRegistrationFixture(0, 5)

	result, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.True(t, result.Success)

	current, reserved := f.classes.counts()
	assert.Equal(t, 1, current)
	assert.Equal(t, 0, reserved)
	require.Len(t, f.members.created, 1)
	assert.Equal(t, "user-1", f.members.created[0].UserID)
	assert.Equal(t, 1, f.metrics.completed)
	require.Len(t, f.payments.freePayments, 1)
	assert.Equal(t, models.ReservationStatusCompleted, f.reservations.statusOf("res-1"))
}

func TestRegisterPaidClassHandsBackOrderURL(t *testing.T) {
	f := newRegistrationFixture(250000, 5)

	result, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "https://pay.example/redirect", result.OrderURL)
	assert.Equal(t, float64(250000), result.AmountDue)

	current, reserved := f.classes.counts()
	assert.Equal(t, 0, current)
	assert.Equal(t, 1, reserved)
	assert.Equal(t, models.ReservationStatusAwaitingPayment, f.reservations.statusOf("res-1"))
}

func TestRegisterReleasesSeatWhenGatewayFails(t *testing.T) {
	f := newRegistrationFixture(250000, 5)
	f.payments.orderErr = appErrors.ErrExternalService

	_, err := f.svc.Register(context.Background(), "user-1", "yoga")
	require.ErrorIs(t, err, appErrors.ErrExternalService)

	_, reserved := f.classes.counts()
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 1, f.metrics.failed)
}

func TestCompleteRejectsUnpaidOrder(t *testing.T) {
	f := newRegistrationFixture(250000, 5)
	_, err := f.svc.Queue(context.Background(), "user-1", "yoga")
	require.NoError(t, err)

	err = f.svc.Complete(context.Background(), "user-1", "yoga", "order-unpaid")
	require.ErrorIs(t, err, appErrors.ErrPaymentFailed)

	current, _ := f.classes.counts()
	assert.Equal(t, 0, current)
	assert.Empty(t, f.members.created)
}

func TestCompleteRecordsReconciliationWhenCommitFails(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	_, err := f.svc.Queue(context.Background(), "user-1", "yoga")
	require.NoError(t, err)
	payment, err := f.payments.RecordFreePayment(context.Background(), "user-1", "yoga")
	require.NoError(t, err)

	f.classes.commitError = errors.New("connection reset")
	err = f.svc.Complete(context.Background(), "user-1", "yoga", payment.OrderID)
	require.ErrorIs(t, err, appErrors.ErrReconciliationRequired)

	require.Len(t, f.payments.reconciliations, 1)
	assert.Equal(t, payment.OrderID, f.payments.reconciliations[0].OrderID)
	assert.Equal(t, 1, f.metrics.alerts)
	assert.Empty(t, f.members.created)
}

func TestCancelWithoutHoldIsNoOp(t *testing.T) {
	f := newRegistrationFixture(0, 5)

	require.NoError(t, f.svc.Cancel(context.Background(), "user-1", "yoga"))
	assert.Equal(t, 0, f.metrics.released)
}

func TestCancelReleasesHeldSeat(t *testing.T) {
	f := newRegistrationFixture(0, 5)
	reservation, err := f.svc.Queue(context.Background(), "user-1", "yoga")
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), "user-1", "yoga"))
	_, reserved := f.classes.counts()
	assert.Equal(t, 0, reserved)
	assert.Equal(t, models.ReservationStatusCancelled, f.reservations.statusOf(reservation.ID))
	assert.Equal(t, 1, f.metrics.released)
}
