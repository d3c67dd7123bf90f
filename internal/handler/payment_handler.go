package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fitzone/booking-api/internal/service"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
	"github.com/fitzone/booking-api/pkg/response"
)

// PaymentHandler exposes payment order and membership purchase endpoints.
type PaymentHandler struct {
	payments      *service.PaymentService
	memberships   *service.MembershipService
	registrations *service.RegistrationService
	exports       *service.ExportService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, memberships *service.MembershipService, registrations *service.RegistrationService, exports *service.ExportService) *PaymentHandler {
	return &PaymentHandler{
		payments:      payments,
		memberships:   memberships,
		registrations: registrations,
		exports:       exports,
	}
}

// CreateClassPayment godoc
// @Summary Create gateway order for a queued class registration
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body object true "class_id"
// @Success 200 {object} response.Envelope
// @Router /payment-class/create-class-payment [post]
func (h *PaymentHandler) CreateClassPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload struct {
		ClassID string `json:"class_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "class_id is required"))
		return
	}
	result, err := h.registrations.CollectPayment(c.Request.Context(), claims.UserID, payload.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"payment": result}, nil)
}

// CheckClassPaymentStatus godoc
// @Summary Poll a class payment order
// @Tags Payments
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} response.Envelope
// @Router /payment-class/check-status/{orderId} [get]
func (h *PaymentHandler) CheckClassPaymentStatus(c *gin.Context) {
	h.checkStatus(c)
}

// MembershipStatus godoc
// @Summary Get membership status
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payment/membership-status [get]
func (h *PaymentHandler) MembershipStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.memberships.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// CreateMembershipPayment godoc
// @Summary Create gateway order for a membership purchase
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.BuyMembershipRequest true "Purchase payload"
// @Success 200 {object} response.Envelope
// @Router /payment/create-membership-payment [post]
func (h *PaymentHandler) CreateMembershipPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BuyMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purchase payload"))
		return
	}
	order, err := h.payments.CreateMembershipOrder(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"payment": order}, nil)
}

// CheckPaymentStatus godoc
// @Summary Poll a payment order
// @Tags Payments
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} response.Envelope
// @Router /payment/check-status/{orderId} [get]
func (h *PaymentHandler) CheckPaymentStatus(c *gin.Context) {
	h.checkStatus(c)
}

// History godoc
// @Summary List payment history
// @Tags Payments
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /payment/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit := 50
	if raw, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && raw > 0 {
		limit = raw
	}
	history, err := h.payments.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Receipt godoc
// @Summary Download payment receipt
// @Tags Payments
// @Produce application/pdf
// @Param orderId path string true "Order ID"
// @Success 200 {file} file
// @Router /payment-class/receipt/{orderId} [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := h.exports.Receipt(c.Request.Context(), claims.UserID, c.Param("orderId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *PaymentHandler) checkStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.payments.CheckStatus(c.Request.Context(), claims.UserID, c.Param("orderId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
