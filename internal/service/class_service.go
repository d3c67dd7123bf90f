package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
}

type classScheduleLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntry, error)
}

type memberRoster interface {
	IsJoined(ctx context.Context, userID, classID string) (bool, error)
	ListByClass(ctx context.Context, classID string) ([]models.AttendeeDetail, error)
}

// CreateClassRequest describes class creation payload.
type CreateClassRequest struct {
	Name         string    `json:"name" validate:"required,min=2,max=120"`
	Description  string    `json:"description" validate:"max=2000"`
	Fee          float64   `json:"fee" validate:"min=0"`
	MaxAttendees int       `json:"maxAttender" validate:"required,min=1,max=500"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
	TrainerID    string    `json:"trainer_id"`
}

// UpdateClassRequest describes class update payload.
type UpdateClassRequest struct {
	Name         *string             `json:"name" validate:"omitempty,min=2,max=120"`
	Description  *string             `json:"description" validate:"omitempty,max=2000"`
	Fee          *float64            `json:"fee" validate:"omitempty,min=0"`
	MaxAttendees *int                `json:"maxAttender" validate:"omitempty,min=1,max=500"`
	StartDate    *time.Time          `json:"start_date"`
	EndDate      *time.Time          `json:"end_date"`
	Status       *models.ClassStatus `json:"status" validate:"omitempty,oneof=PENDING ACTIVE LOCKED"`
}

// ClassService manages the class catalogue: listings, detail, rosters, and
// trainer-side CRUD. Listings are served through the cache when enabled.
type ClassService struct {
	repo      classRepository
	schedules classScheduleLister
	members   memberRoster
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, schedules classScheduleLister, members memberRoster, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:      repo,
		schedules: schedules,
		members:   members,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

type cachedClassList struct {
	Classes    []models.ClassDetail `json:"classes"`
	Pagination models.Pagination    `json:"pagination"`
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	key := classListCacheKey(filter)
	var cached cachedClassList
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Classes, &cached.Pagination, nil
	}

	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}

	_ = s.cache.Set(ctx, key, cachedClassList{Classes: classes, Pagination: pagination}, s.cacheTTL)
	return classes, &pagination, nil
}

// GetDetail returns a class with trainer info and its published schedule.
func (s *ClassService) GetDetail(ctx context.Context, id string) (*models.ClassDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	entries, err := s.schedules.ListByClass(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
	}
	detail.Schedule = make([]models.WeeklySlot, 0, len(entries))
	for _, entry := range entries {
		detail.Schedule = append(detail.Schedule, entry.Slot)
	}
	return detail, nil
}

// JoinStatus reports whether the user already holds an active membership.
func (s *ClassService) JoinStatus(ctx context.Context, userID, classID string) (*models.JoinStatus, error) {
	joined, err := s.members.IsJoined(ctx, userID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check join status")
	}
	return &models.JoinStatus{IsJoined: joined}, nil
}

// Create registers a new class owned by the given trainer.
func (s *ClassService) Create(ctx context.Context, trainerID string, req CreateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class start date must be before end date")
	}
	owner := trainerID
	if req.TrainerID != "" {
		owner = req.TrainerID
	}
	class := &models.Class{
		TrainerID:    owner,
		Name:         req.Name,
		Description:  req.Description,
		Fee:          req.Fee,
		MaxAttendees: req.MaxAttendees,
		Status:       models.ClassStatusPending,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	_ = s.cache.Invalidate(ctx, "classes:*")
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("trainer_id", owner))
	return s.GetDetail(ctx, class.ID)
}

// Update applies partial changes to a class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Fee != nil {
		class.Fee = *req.Fee
	}
	if req.MaxAttendees != nil {
		if *req.MaxAttendees < class.CurrentAttendees+class.ReservedCount {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity cannot drop below current attendance")
		}
		class.MaxAttendees = *req.MaxAttendees
	}
	if req.StartDate != nil {
		class.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		class.EndDate = *req.EndDate
	}
	if !class.StartDate.Before(class.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class start date must be before end date")
	}
	if req.Status != nil {
		class.Status = *req.Status
	}

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	_ = s.cache.Invalidate(ctx, "classes:*")
	return s.GetDetail(ctx, id)
}

// Attendees returns the active roster for a class.
func (s *ClassService) Attendees(ctx context.Context, classID string) ([]models.AttendeeDetail, error) {
	if _, err := s.repo.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	attendees, err := s.members.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendees")
	}
	return attendees, nil
}

func classListCacheKey(filter models.ClassFilter) string {
	return fmt.Sprintf("classes:list:%s:%s:%s:%d:%d:%s:%s",
		filter.TrainerID, filter.Status, filter.Search,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
