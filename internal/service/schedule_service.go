package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type scheduleWriter interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntry, error)
	Create(ctx context.Context, entry *models.ScheduleEntry) error
	DeleteByClass(ctx context.Context, classID string) error
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type classConflictChecker interface {
	CheckClassSchedule(ctx context.Context, classID string, proposed []models.WeeklySlot) (*models.ClassConflictResult, error)
}

// SlotRequest is one schedule slot in the external payload shape.
type SlotRequest struct {
	Day       string  `json:"day" validate:"required_without=Date"`
	Date      *string `json:"date"`
	StartHour string  `json:"start_hour" validate:"required"`
	EndHour   string  `json:"end_hour" validate:"required"`
}

// ReplaceScheduleRequest replaces a class's published slots.
type ReplaceScheduleRequest struct {
	Slots []SlotRequest `json:"slots" validate:"required,min=1,max=21,dive"`
	Force bool          `json:"force"`
}

// ScheduleService manages published class slots. Replacing a live schedule
// is checked against every enrolled attendee's other commitments first.
type ScheduleService struct {
	repo      scheduleWriter
	classes   classReader
	conflicts classConflictChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleWriter, classes classReader, conflicts classConflictChecker, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, classes: classes, conflicts: conflicts, validator: validate, logger: logger}
}

// GetClassSchedule returns the published slots for a class. Unpublished
// schedules come back as an empty list.
func (s *ScheduleService) GetClassSchedule(ctx context.Context, classID string) ([]models.ScheduleEntry, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	entries, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return entries, nil
}

// Replace swaps the class's published slots for the provided set. When the
// new slots collide with enrolled attendees' commitments the replacement is
// rejected unless Force is set, and the affected users are returned either way.
func (s *ScheduleService) Replace(ctx context.Context, classID string, req ReplaceScheduleRequest) (*models.ClassConflictResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	slots, err := parseSlots(req.Slots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	for i, a := range slots {
		for _, b := range slots[i+1:] {
			if a.Overlaps(b) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "proposed slots overlap each other")
			}
		}
	}

	result, err := s.conflicts.CheckClassSchedule(ctx, classID, slots)
	if err != nil {
		return nil, err
	}
	if result.HasConflicts && !req.Force {
		return result, appErrors.Clone(appErrors.ErrScheduleConflict, "new schedule conflicts with attendee commitments")
	}

	if err := s.repo.DeleteByClass(ctx, classID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
	}
	for _, slot := range slots {
		entry := &models.ScheduleEntry{ClassID: classID, Slot: slot}
		if err := s.repo.Create(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule")
		}
	}
	s.logger.Info("class schedule replaced",
		zap.String("class_id", classID),
		zap.Int("slots", len(slots)),
		zap.Bool("forced", req.Force && result.HasConflicts))
	return result, nil
}

func parseSlots(requests []SlotRequest) ([]models.WeeklySlot, error) {
	slots := make([]models.WeeklySlot, 0, len(requests))
	for _, req := range requests {
		start, err := models.ParseClock(req.StartHour)
		if err != nil {
			return nil, err
		}
		end, err := models.ParseClock(req.EndHour)
		if err != nil {
			return nil, err
		}
		slot := models.WeeklySlot{Start: start, End: end}
		if req.Date != nil && *req.Date != "" {
			occurs, err := time.Parse("2006-01-02", *req.Date)
			if err != nil {
				return nil, err
			}
			slot.Date = &occurs
			slot.DayOfWeek = occurs.Weekday()
		} else {
			day, err := models.ParseDay(req.Day)
			if err != nil {
				return nil, err
			}
			slot.DayOfWeek = day
		}
		if err := slot.Validate(); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
