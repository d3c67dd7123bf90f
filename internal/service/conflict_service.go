package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type scheduleReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntry, error)
	ListUserCommitments(ctx context.Context, userID, excludeClassID string) ([]models.UserCommitment, error)
}

type attendeeLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.AttendeeDetail, error)
}

// ConflictService detects schedule collisions between weekly slots. The
// interval comparison itself is pure; the user and class variants load
// committed slots from the repositories first.
type ConflictService struct {
	schedules scheduleReader
	members   attendeeLister
	logger    *zap.Logger
}

// NewConflictService constructs ConflictService.
func NewConflictService(schedules scheduleReader, members attendeeLister, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{schedules: schedules, members: members, logger: logger}
}

// CheckSlot compares a candidate slot against a set of existing slots and
// returns every overlap. Slots that merely touch do not conflict.
func (s *ConflictService) CheckSlot(candidate models.WeeklySlot, existing []models.WeeklySlot) models.SlotConflictResult {
	result := models.SlotConflictResult{Conflicts: []models.WeeklySlot{}}
	for _, slot := range existing {
		if candidate.Overlaps(slot) {
			result.Conflicts = append(result.Conflicts, slot)
		}
	}
	result.HasConflict = len(result.Conflicts) > 0
	return result
}

// CheckUserSchedule checks whether joining the candidate class would collide
// with any of the user's committed slots. The candidate class's own slots are
// excluded from the committed set so re-checking is idempotent.
func (s *ConflictService) CheckUserSchedule(ctx context.Context, userID, classID string) (*models.UserConflictResult, error) {
	candidateSlots, err := s.schedules.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
	}
	commitments, err := s.schedules.ListUserCommitments(ctx, userID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user commitments")
	}

	result := &models.UserConflictResult{Conflicts: []models.ConflictDetail{}}
	for _, entry := range candidateSlots {
		for _, commitment := range commitments {
			if entry.Slot.Overlaps(commitment.Slot) {
				result.Conflicts = append(result.Conflicts, conflictDetail(commitment))
			}
		}
	}
	result.HasConflict = len(result.Conflicts) > 0
	return result, nil
}

// CheckClassSchedule checks a proposed set of slots for a class against the
// commitments of everyone currently enrolled, for trainers editing a live
// schedule. Attendees' commitments to this class are excluded since those are
// exactly the slots being replaced.
func (s *ConflictService) CheckClassSchedule(ctx context.Context, classID string, proposed []models.WeeklySlot) (*models.ClassConflictResult, error) {
	for _, slot := range proposed {
		if err := slot.Validate(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule slot")
		}
	}
	attendees, err := s.members.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class attendees")
	}

	result := &models.ClassConflictResult{ConflictingUsers: []models.AffectedUser{}}
	for _, attendee := range attendees {
		commitments, err := s.schedules.ListUserCommitments(ctx, attendee.UserID, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user commitments")
		}
		var conflicts []models.ConflictDetail
		for _, slot := range proposed {
			for _, commitment := range commitments {
				if slot.Overlaps(commitment.Slot) {
					conflicts = append(conflicts, conflictDetail(commitment))
				}
			}
		}
		if len(conflicts) > 0 {
			result.ConflictingUsers = append(result.ConflictingUsers, models.AffectedUser{
				UserID:    attendee.UserID,
				FullName:  attendee.FullName,
				Conflicts: conflicts,
			})
		}
	}
	result.HasConflicts = len(result.ConflictingUsers) > 0
	return result, nil
}

func conflictDetail(commitment models.UserCommitment) models.ConflictDetail {
	days := strings.ToUpper(commitment.Slot.DayOfWeek.String())
	if commitment.Slot.Date != nil {
		days = commitment.Slot.Date.Format("2006-01-02")
	}
	return models.ConflictDetail{
		ExistingClass: models.ExistingClassInfo{
			ClassID:   commitment.ClassID,
			ClassName: commitment.ClassName,
			Schedule: models.ScheduleWire{
				Days:      days,
				StartHour: models.FormatClock(commitment.Slot.Start),
				EndHour:   models.FormatClock(commitment.Slot.End),
			},
		},
	}
}
