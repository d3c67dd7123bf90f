package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fitzone/booking-api/internal/models"
	"github.com/fitzone/booking-api/internal/service"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
	"github.com/fitzone/booking-api/pkg/response"
)

// ScheduleHandler exposes class schedule and conflict-check endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	conflicts *service.ConflictService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService, conflicts *service.ConflictService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, conflicts: conflicts}
}

// GetClassSchedule godoc
// @Summary Get class schedule
// @Tags Schedule
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/class/{classId} [get]
func (h *ScheduleHandler) GetClassSchedule(c *gin.Context) {
	entries, err := h.schedules.GetClassSchedule(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	wire := make([]models.ScheduleWire, 0, len(entries))
	for _, entry := range entries {
		wire = append(wire, slotWire(entry.Slot))
	}
	response.JSON(c, http.StatusOK, wire, nil)
}

// Replace godoc
// @Summary Replace class schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body service.ReplaceScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule/class/{classId} [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	var req service.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.schedules.Replace(c.Request.Context(), c.Param("classId"), req)
	if err != nil {
		// A conflict rejection still carries the affected users for display.
		if result != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Data: result, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckUserConflict godoc
// @Summary Check user schedule conflict
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body object true "user_id and class_id"
// @Success 200 {object} response.Envelope
// @Router /schedule/check-schedule-conflict [post]
func (h *ScheduleHandler) CheckUserConflict(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		ClassID string `json:"class_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user_id and class_id are required"))
		return
	}
	result, err := h.conflicts.CheckUserSchedule(c.Request.Context(), req.UserID, req.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckClassConflict godoc
// @Summary Check proposed class slot against enrolled attendees
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body object true "class_id, days, start_hour, end_hour"
// @Success 200 {object} response.Envelope
// @Router /schedule/check-class-schedule-conflict [post]
func (h *ScheduleHandler) CheckClassConflict(c *gin.Context) {
	var req struct {
		ClassID   string `json:"class_id" binding:"required"`
		Days      string `json:"days" binding:"required"`
		StartHour string `json:"start_hour" binding:"required"`
		EndHour   string `json:"end_hour" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}

	slot, err := parseWireSlot(req.Days, req.StartHour, req.EndHour)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	result, err := h.conflicts.CheckClassSchedule(c.Request.Context(), req.ClassID, []models.WeeklySlot{slot})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func parseWireSlot(days, startHour, endHour string) (models.WeeklySlot, error) {
	start, err := models.ParseClock(startHour)
	if err != nil {
		return models.WeeklySlot{}, err
	}
	end, err := models.ParseClock(endHour)
	if err != nil {
		return models.WeeklySlot{}, err
	}
	day, err := models.ParseDay(days)
	if err != nil {
		return models.WeeklySlot{}, err
	}
	slot := models.WeeklySlot{DayOfWeek: day, Start: start, End: end}
	return slot, slot.Validate()
}

func slotWire(slot models.WeeklySlot) models.ScheduleWire {
	days := strings.ToUpper(slot.DayOfWeek.String())
	if slot.Date != nil {
		days = slot.Date.Format("2006-01-02")
	}
	return models.ScheduleWire{
		Days:      days,
		StartHour: models.FormatClock(slot.Start),
		EndHour:   models.FormatClock(slot.End),
	}
}
