package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitzone/booking-api/internal/service"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
	"github.com/fitzone/booking-api/pkg/response"
)

// RegistrationHandler exposes the class admission flow.
type RegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Queue godoc
// @Summary Queue for class registration
// @Description Claims a provisional seat and runs the eligibility and payment steps
// @Tags Registration
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{classId}/queue-registration [post]
func (h *RegistrationHandler) Queue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.registrations.Register(c.Request.Context(), claims.UserID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a queued registration
// @Description Releases the held seat; calling without a live hold is a no-op
// @Tags Registration
// @Produce json
// @Param classId path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Router /classes/{classId}/queue-registration [delete]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.registrations.Cancel(c.Request.Context(), claims.UserID, c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete a paid registration
// @Description Verifies the gateway order and confirms the held seat
// @Tags Registration
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body object true "order_id"
// @Success 200 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Router /classes/{classId}/complete-registration [post]
func (h *RegistrationHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "order_id is required"))
		return
	}
	if err := h.registrations.Complete(c.Request.Context(), claims.UserID, c.Param("classId"), payload.OrderID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"success": true, "message": "registration completed"}, nil)
}

// Eligibility godoc
// @Summary Check registration eligibility
// @Description Runs the pre-payment condition checks without claiming a seat
// @Tags Registration
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/eligibility [get]
func (h *RegistrationHandler) Eligibility(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	eligibility, err := h.registrations.ValidateConditions(c.Request.Context(), claims.UserID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eligibility, nil)
}
