package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzone/booking-api/internal/models"
	"github.com/fitzone/booking-api/pkg/jobs"
)

type fakeExpiredRepo struct {
	fakeReservationRepo
	stale []models.Reservation
}

func (f *fakeExpiredRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	if f.stale != nil {
		return f.stale, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		if r.Status.Live() && r.ExpiresAt.Before(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func TestSweepExpiresStaleHolds(t *testing.T) {
	reservations := &fakeExpiredRepo{}
	reservations.reservations = map[string]*models.Reservation{
		"res-1": {ID: "res-1", UserID: "user-1", ClassID: "yoga",
			Status: models.ReservationStatusReserved, ExpiresAt: time.Now().UTC().Add(-time.Minute)},
		"res-2": {ID: "res-2", UserID: "user-2", ClassID: "yoga",
			Status: models.ReservationStatusAwaitingPayment, ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}
	classes := &fakeClassRepo{class: models.Class{
		ID: "yoga", MaxAttendees: 5, ReservedCount: 2, Status: models.ClassStatusActive,
	}}
	metrics := &fakeBookingMetrics{}

	sweeper := NewReservationSweeper(reservations, classes, metrics, time.Minute, 1, nil)
	require.NoError(t, sweeper.sweep(context.Background(), jobs.Job{}))

	assert.Equal(t, models.ReservationStatusExpired, reservations.statusOf("res-1"))
	assert.Equal(t, models.ReservationStatusAwaitingPayment, reservations.statusOf("res-2"))
	_, reserved := classes.counts()
	assert.Equal(t, 1, reserved)
	assert.Equal(t, 1, metrics.expired)
}

func TestSweepSkipsConcurrentlyCompletedHolds(t *testing.T) {
	// The listed snapshot says Reserved but the store has already moved on,
	// as happens when a completion lands between the list and the update.
	reservations := &fakeExpiredRepo{stale: []models.Reservation{
		{ID: "res-1", UserID: "user-1", ClassID: "yoga",
			Status: models.ReservationStatusReserved, ExpiresAt: time.Now().UTC().Add(-time.Minute)},
	}}
	reservations.reservations = map[string]*models.Reservation{
		"res-1": {ID: "res-1", UserID: "user-1", ClassID: "yoga",
			Status: models.ReservationStatusCompleted, ExpiresAt: time.Now().UTC().Add(-time.Minute)},
	}
	classes := &fakeClassRepo{class: models.Class{
		ID: "yoga", MaxAttendees: 5, ReservedCount: 1, Status: models.ClassStatusActive,
	}}
	metrics := &fakeBookingMetrics{}
	sweeper := NewReservationSweeper(reservations, classes, metrics, time.Minute, 1, nil)

	require.NoError(t, sweeper.sweep(context.Background(), jobs.Job{}))
	assert.Equal(t, models.ReservationStatusCompleted, reservations.statusOf("res-1"))
	_, reserved := classes.counts()
	assert.Equal(t, 1, reserved)
	assert.Equal(t, 0, metrics.expired)
}
