package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/fitzone/booking-api/internal/middleware"
	"github.com/fitzone/booking-api/internal/models"
	"github.com/fitzone/booking-api/internal/service"
)

type classStoreMock struct {
	mu    sync.Mutex
	class models.Class
}

func (m *classStoreMock) FindByID(ctx context.Context, id string) (*models.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != m.class.ID {
		return nil, sql.ErrNoRows
	}
	copied := m.class
	return &copied, nil
}

func (m *classStoreMock) ReserveSeat(ctx context.Context, classID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.class.CurrentAttendees+m.class.ReservedCount >= m.class.MaxAttendees {
		return false, nil
	}
	m.class.ReservedCount++
	return true, nil
}

func (m *classStoreMock) ReleaseSeat(ctx context.Context, classID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.class.ReservedCount > 0 {
		m.class.ReservedCount--
	}
	return nil
}

func (m *classStoreMock) CommitSeat(ctx context.Context, classID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.class.ReservedCount < 1 {
		return sql.ErrNoRows
	}
	m.class.ReservedCount--
	m.class.CurrentAttendees++
	return nil
}

type reservationStoreMock struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	nextID       int
}

func (m *reservationStoreMock) FindLive(ctx context.Context, userID, classID string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.UserID == userID && r.ClassID == classID && r.Status.Live() {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *reservationStoreMock) Create(ctx context.Context, reservation *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reservations == nil {
		m.reservations = make(map[string]*models.Reservation)
	}
	m.nextID++
	reservation.ID = "res-" + string(rune('0'+m.nextID))
	copied := *reservation
	m.reservations[reservation.ID] = &copied
	return nil
}

func (m *reservationStoreMock) UpdateStatus(ctx context.Context, id string, from, to models.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != from {
		return sql.ErrNoRows
	}
	r.Status = to
	return nil
}

func (m *reservationStoreMock) CancelLive(ctx context.Context, userID, classID string, to models.ReservationStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.reservations {
		if r.UserID == userID && r.ClassID == classID && r.Status.Live() {
			r.Status = to
			n++
		}
	}
	return n, nil
}

type memberStoreMock struct {
	mu      sync.Mutex
	members []models.ClassMember
}

func (m *memberStoreMock) IsJoined(ctx context.Context, userID, classID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.UserID == userID && member.ClassID == classID && member.Status == models.MemberStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memberStoreMock) Create(ctx context.Context, member *models.ClassMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, *member)
	return nil
}

type membershipWindowMock struct{}

func (membershipWindowMock) FindActiveWindow(ctx context.Context, userID string, at time.Time) (*models.MembershipWindow, error) {
	return &models.MembershipWindow{
		UserID:    userID,
		StartDate: at.AddDate(0, -1, 0),
		EndDate:   at.AddDate(1, 0, 0),
		Active:    true,
	}, nil
}

type conflictCheckerMock struct{}

func (conflictCheckerMock) CheckUserSchedule(ctx context.Context, userID, classID string) (*models.UserConflictResult, error) {
	return &models.UserConflictResult{}, nil
}

type paymentCollectorMock struct {
	mu    sync.Mutex
	paid  map[string]bool
	order int
}

func (m *paymentCollectorMock) CreateClassOrder(ctx context.Context, userID string, class *models.Class) (*models.PaymentOrder, error) {
	return &models.PaymentOrder{OrderID: "order-1", OrderURL: "https://pay.example/order-1", Amount: class.Fee}, nil
}

func (m *paymentCollectorMock) RecordFreePayment(ctx context.Context, userID, classID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paid == nil {
		m.paid = make(map[string]bool)
	}
	m.order++
	orderID := "free-" + string(rune('0'+m.order))
	m.paid[orderID] = true
	return &models.Payment{OrderID: orderID, UserID: userID, Status: models.PaymentStatusPaid}, nil
}

func (m *paymentCollectorMock) VerifyPaid(ctx context.Context, orderID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paid[orderID] {
		return &models.Payment{OrderID: orderID, UserID: "user-1", Status: models.PaymentStatusPaid}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *paymentCollectorMock) RecordReconciliation(ctx context.Context, rec *models.Reconciliation) error {
	return nil
}

func buildRegistrationRouter(classes *classStoreMock, members *memberStoreMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	registrations := service.NewRegistrationService(
		classes, &reservationStoreMock{}, members, membershipWindowMock{},
		conflictCheckerMock{}, &paymentCollectorMock{}, nil,
		10*time.Minute, nil, nil)
	h := NewRegistrationHandler(registrations)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: c.GetHeader("X-Test-User"),
				Role:   models.RoleMember,
			})
		}
		c.Next()
	})
	router.POST("/classes/:classId/queue-registration", h.Queue)
	router.DELETE("/classes/:classId/queue-registration", h.Cancel)
	return router
}

func performRequest(router *gin.Engine, method, path, user string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQueueRegistrationRoutes(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		classes := &classStoreMock{class: models.Class{ID: "yoga", MaxAttendees: 5, Status: models.ClassStatusActive}}
		router := buildRegistrationRouter(classes, &memberStoreMock{})
		resp := performRequest(router, http.MethodPost, "/classes/yoga/queue-registration", "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("free class completes", func(t *testing.T) {
		classes := &classStoreMock{class: models.Class{
			ID: "yoga", MaxAttendees: 5, Fee: 0, Status: models.ClassStatusActive,
			EndDate: time.Now().UTC().AddDate(0, 2, 0),
		}}
		members := &memberStoreMock{}
		router := buildRegistrationRouter(classes, members)

		resp := performRequest(router, http.MethodPost, "/classes/yoga/queue-registration", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"success":true`)
		require.Len(t, members.members, 1)
		require.Equal(t, 1, classes.class.CurrentAttendees)
		require.Equal(t, 0, classes.class.ReservedCount)
	})

	t.Run("re-registering is a no-op success", func(t *testing.T) {
		classes := &classStoreMock{class: models.Class{
			ID: "yoga", MaxAttendees: 5, Fee: 0, Status: models.ClassStatusActive,
			EndDate: time.Now().UTC().AddDate(0, 2, 0),
		}}
		members := &memberStoreMock{}
		router := buildRegistrationRouter(classes, members)

		resp := performRequest(router, http.MethodPost, "/classes/yoga/queue-registration", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)

		resp = performRequest(router, http.MethodPost, "/classes/yoga/queue-registration", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"success":true`)
		require.Len(t, members.members, 1)
		require.Equal(t, 1, classes.class.CurrentAttendees)
		require.Equal(t, 0, classes.class.ReservedCount)
	})

	t.Run("paid class returns order url", func(t *testing.T) {
		classes := &classStoreMock{class: models.Class{
			ID: "yoga", MaxAttendees: 5, Fee: 250000, Status: models.ClassStatusActive,
			EndDate: time.Now().UTC().AddDate(0, 2, 0),
		}}
		router := buildRegistrationRouter(classes, &memberStoreMock{})

		resp := performRequest(router, http.MethodPost, "/classes/yoga/queue-registration", "user-1")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"order_url":"https://pay.example/order-1"`)
	})

	t.Run("full class rejected", func(t *testing.T) {
		classes := &classStoreMock{class: models.Class{
			ID: "yoga", MaxAttendees: 1, CurrentAttendees: 1, Fee: 0, Status: models.ClassStatusActive,
			EndDate: time.Now().UTC().AddDate(0, 2, 0),
		}}
		router := buildRegistrationRouter(classes, &memberStoreMock{})

		resp := performRequest(router, http.MethodPost, "/classes/yoga/queue-registration", "user-1")
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), `"CLASS_FULL"`)
	})

	t.Run("cancel without hold is a no-op", func(t *testing.T) {
		classes := &classStoreMock{class: models.Class{ID: "yoga", MaxAttendees: 5, Status: models.ClassStatusActive}}
		router := buildRegistrationRouter(classes, &memberStoreMock{})

		resp := performRequest(router, http.MethodDelete, "/classes/yoga/queue-registration", "user-1")
		require.Equal(t, http.StatusNoContent, resp.Code)
	})
}
