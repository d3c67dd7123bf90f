package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type membershipRepository interface {
	FindActiveWindow(ctx context.Context, userID string, at time.Time) (*models.MembershipWindow, error)
}

// MembershipService reports studio membership status for the booking flow.
type MembershipService struct {
	repo   membershipRepository
	logger *zap.Logger
}

// NewMembershipService constructs MembershipService.
func NewMembershipService(repo membershipRepository, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{repo: repo, logger: logger}
}

// Status returns whether the user holds an active membership right now, with
// the window details when one exists. No membership is a valid state, not an
// error.
func (s *MembershipService) Status(ctx context.Context, userID string) (*models.MembershipStatus, error) {
	window, err := s.repo.FindActiveWindow(ctx, userID, time.Now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.MembershipStatus{IsActive: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	return &models.MembershipStatus{
		IsActive: true,
		MembershipDetails: &models.MembershipDetails{
			StartDate: window.StartDate,
			EndDate:   window.EndDate,
		},
	}, nil
}
