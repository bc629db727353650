package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-assign-api/internal/models"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

type assignmentService interface {
	List(ctx context.Context, query models.AssignmentQuery) models.AssignmentPage
	ListByTeacher(ctx context.Context, teacherID string, query models.AssignmentQuery) models.AssignmentPage
	Get(ctx context.Context, id string) (*models.Assignment, error)
	Save(ctx context.Context, input models.AssignmentInput) (*models.Assignment, error)
	Update(ctx context.Context, id string, input models.AssignmentInput) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) (*models.Assignment, error)
	MarkCompletedForTeacher(ctx context.Context, id, teacherID string) (*models.Assignment, error)
	BulkMarkCompleted(ctx context.Context) (*models.BulkResult, error)
}

type teacherResolver interface {
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
}

// AssignmentHandler exposes the assignment ledger and listing engine.
type AssignmentHandler struct {
	assignments assignmentService
	teachers    teacherResolver
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(assignments assignmentService, teachers teacherResolver) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, teachers: teachers}
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param search query string false "Teacher name contains (case-insensitive)"
// @Param teacher_id query string false "Teacher ID"
// @Param status query string false "Pending or Completed"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	query, ok := bindAssignmentQuery(c)
	if !ok {
		return
	}
	page := h.assignments.List(c.Request.Context(), query)
	response.JSON(c, http.StatusOK, page.Items, pagination(page))
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Create godoc
// @Summary Save assignment
// @Description Subject and packet codes must be unused; a teacher holds one pending assignment per due date.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.AssignmentInput true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req models.AssignmentInput
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.assignments.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMessage(c, http.StatusCreated, assignment, "Assignment saved successfully!")
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.AssignmentInput true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req models.AssignmentInput
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.assignments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMessage(c, http.StatusOK, assignment, "Assignment updated successfully!")
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	respondWithMessage(c, http.StatusOK, gin.H{"id": c.Param("id")}, "Assignment deleted successfully!")
}

// Complete godoc
// @Summary Mark assignment as completed
// @Description Teachers may only complete their own assignments.
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/complete [post]
func (h *AssignmentHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	var (
		assignment *models.Assignment
		err        error
	)
	if claims.Role == models.RoleAdmin {
		assignment, err = h.assignments.MarkCompleted(ctx, c.Param("id"))
	} else {
		var teacher *models.Teacher
		if teacher, err = h.teachers.FindByEmail(ctx, claims.Email); err == nil {
			assignment, err = h.assignments.MarkCompletedForTeacher(ctx, c.Param("id"), teacher.ID)
		}
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMessage(c, http.StatusOK, assignment, "Assignment marked as completed!")
}

// CompleteAll godoc
// @Summary Mark every pending assignment as completed
// @Description Each assignment is an independent write; failures are listed and not retried.
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assignments/complete [post]
func (h *AssignmentHandler) CompleteAll(c *gin.Context) {
	result, err := h.assignments.BulkMarkCompleted(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMessage(c, http.StatusOK, result, fmt.Sprintf("%d assignment(s) marked as completed!", result.Succeeded))
}

func bindAssignmentQuery(c *gin.Context) (models.AssignmentQuery, bool) {
	var query models.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return query, false
	}
	if query.Status != "" && !query.Status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be Pending or Completed"))
		return query, false
	}
	return query, true
}

func pagination(page models.AssignmentPage) *models.Pagination {
	return &models.Pagination{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
	}
}
