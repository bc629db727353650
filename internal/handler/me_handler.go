package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-assign-api/internal/middleware"
	"github.com/noah-isme/exam-assign-api/internal/models"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

type teacherAnalyticsService interface {
	TeacherReport(ctx context.Context, teacherID string) (models.TeacherAnalytics, bool, error)
}

// MeHandler serves the signed-in teacher's own panel.
type MeHandler struct {
	teachers    teacherResolver
	assignments assignmentService
	analytics   teacherAnalyticsService
}

// NewMeHandler constructs a MeHandler.
func NewMeHandler(teachers teacherResolver, assignments assignmentService, analytics teacherAnalyticsService) *MeHandler {
	return &MeHandler{teachers: teachers, assignments: assignments, analytics: analytics}
}

// Assignments godoc
// @Summary List my assignments
// @Tags Me
// @Produce json
// @Param status query string false "Pending or Completed"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /me/assignments [get]
func (h *MeHandler) Assignments(c *gin.Context) {
	teacher, ok := h.currentTeacher(c)
	if !ok {
		return
	}
	query, ok := bindAssignmentQuery(c)
	if !ok {
		return
	}
	page := h.assignments.ListByTeacher(c.Request.Context(), teacher.ID, query)
	response.JSON(c, http.StatusOK, page.Items, pagination(page))
}

// Analytics godoc
// @Summary My totals
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/analytics [get]
func (h *MeHandler) Analytics(c *gin.Context) {
	teacher, ok := h.currentTeacher(c)
	if !ok {
		return
	}
	stats, cacheHit, err := h.analytics.TeacherReport(c.Request.Context(), teacher.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

func (h *MeHandler) currentTeacher(c *gin.Context) (*models.Teacher, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	teacher, err := h.teachers.FindByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return teacher, true
}
