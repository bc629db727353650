package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-assign-api/internal/middleware"
	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

type analyticsService interface {
	Report(ctx context.Context) (models.AnalyticsReport, bool, error)
}

// AnalyticsHandler exposes the workload report.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Report godoc
// @Summary Workload per teacher
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	report, cacheHit, err := h.analytics.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ResponseMeta(c))
}
