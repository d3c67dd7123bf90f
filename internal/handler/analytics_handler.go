package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitzone/booking-api/internal/service"
	"github.com/fitzone/booking-api/pkg/response"
)

// AnalyticsHandler exposes admin reporting endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Revenue godoc
// @Summary Revenue summary
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/revenue [get]
func (h *AnalyticsHandler) Revenue(c *gin.Context) {
	summary, err := h.analytics.RevenueSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SystemMetrics godoc
// @Summary System metrics snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) SystemMetrics(c *gin.Context) {
	metrics, err := h.analytics.SystemMetrics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}
