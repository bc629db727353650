package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-assign-api/internal/middleware"
	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/internal/service"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func withClaims(c *gin.Context, role models.UserRole, email string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role, Email: email})
}

type fakeTeacherSrv struct {
	teachers []models.Teacher
	addErr   error
	lastAdd  models.TeacherInput
}

func (f *fakeTeacherSrv) List(context.Context) []models.Teacher { return f.teachers }

func (f *fakeTeacherSrv) Get(_ context.Context, id string) (*models.Teacher, error) {
	for _, teacher := range f.teachers {
		if teacher.ID == id {
			return &teacher, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
}

func (f *fakeTeacherSrv) Add(_ context.Context, input models.TeacherInput) (*models.Teacher, error) {
	f.lastAdd = input
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.Teacher{ID: "t1", Name: input.Name, Email: input.Email}, nil
}

func (f *fakeTeacherSrv) Update(_ context.Context, id string, input models.TeacherInput) (*models.Teacher, error) {
	return &models.Teacher{ID: id, Name: input.Name, Email: input.Email}, nil
}

func (f *fakeTeacherSrv) Delete(context.Context, string) error {
	return appErrors.Clone(appErrors.ErrConflict, "cannot delete teacher with active assignments")
}

func (f *fakeTeacherSrv) FindByEmail(_ context.Context, email string) (*models.Teacher, error) {
	for _, teacher := range f.teachers {
		if strings.EqualFold(teacher.Email, email) {
			return &teacher, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher is registered for this account")
}

func TestTeacherHandlerCreate(t *testing.T) {
	srv := &fakeTeacherSrv{}
	h := NewTeacherHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/teachers", map[string]string{"name": "Ana", "email": "ana@school.id"})
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Teacher added successfully!", env.Meta["message"])
	assert.Equal(t, "Ana", srv.lastAdd.Name)
}

func TestTeacherHandlerCreateConflict(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherSrv{addErr: appErrors.Clone(appErrors.ErrConflict, "email already exists")})

	c, rec := newTestContext(http.MethodPost, "/teachers", map[string]string{"name": "Ana", "email": "ana@school.id"})
	h.Create(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "email already exists", env.Error.Message)
}

func TestTeacherHandlerRejectsMalformedBody(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherSrv{})

	c, rec := newTestContext(http.MethodPost, "/teachers", nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/teachers", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeacherHandlerDeleteBlocked(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherSrv{})

	c, rec := newTestContext(http.MethodDelete, "/teachers/t1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.Delete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

type fakeAssignmentSrv struct {
	page         models.AssignmentPage
	lastQuery    models.AssignmentQuery
	lastTeacher  string
	completedFor string
	bulkResult   *models.BulkResult
	bulkErr      error
}

func (f *fakeAssignmentSrv) List(_ context.Context, query models.AssignmentQuery) models.AssignmentPage {
	f.lastQuery = query
	return f.page
}

func (f *fakeAssignmentSrv) ListByTeacher(_ context.Context, teacherID string, query models.AssignmentQuery) models.AssignmentPage {
	f.lastTeacher = teacherID
	f.lastQuery = query
	return f.page
}

func (f *fakeAssignmentSrv) Get(_ context.Context, id string) (*models.Assignment, error) {
	return &models.Assignment{ID: id}, nil
}

func (f *fakeAssignmentSrv) Save(_ context.Context, input models.AssignmentInput) (*models.Assignment, error) {
	return &models.Assignment{ID: "a1", SubjectCode: input.SubjectCode}, nil
}

func (f *fakeAssignmentSrv) Update(_ context.Context, id string, _ models.AssignmentInput) (*models.Assignment, error) {
	return &models.Assignment{ID: id}, nil
}

func (f *fakeAssignmentSrv) Delete(context.Context, string) error { return nil }

func (f *fakeAssignmentSrv) MarkCompleted(_ context.Context, id string) (*models.Assignment, error) {
	return &models.Assignment{ID: id, Status: models.StatusCompleted}, nil
}

func (f *fakeAssignmentSrv) MarkCompletedForTeacher(_ context.Context, id, teacherID string) (*models.Assignment, error) {
	f.completedFor = teacherID
	return &models.Assignment{ID: id, Status: models.StatusCompleted}, nil
}

func (f *fakeAssignmentSrv) BulkMarkCompleted(context.Context) (*models.BulkResult, error) {
	return f.bulkResult, f.bulkErr
}

func TestAssignmentHandlerListBindsQuery(t *testing.T) {
	srv := &fakeAssignmentSrv{page: models.AssignmentPage{
		Items:      []models.AssignmentRow{{Assignment: models.Assignment{ID: "a1"}, TeacherName: "Ana"}},
		Page:       2,
		PageSize:   10,
		TotalPages: 2,
		TotalCount: 11,
	}}
	h := NewAssignmentHandler(srv, &fakeTeacherSrv{})

	c, rec := newTestContext(http.MethodGet, "/assignments?search=ana&status=Pending&page=2", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AssignmentQuery{Search: "ana", Status: models.StatusPending, Page: 2}, srv.lastQuery)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 11, env.Pagination.TotalCount)
	assert.Equal(t, 2, env.Pagination.TotalPages)
}

func TestAssignmentHandlerListRejectsUnknownStatus(t *testing.T) {
	h := NewAssignmentHandler(&fakeAssignmentSrv{}, &fakeTeacherSrv{})

	c, rec := newTestContext(http.MethodGet, "/assignments?status=Archived", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignmentHandlerCompleteAsTeacher(t *testing.T) {
	srv := &fakeAssignmentSrv{}
	teachers := &fakeTeacherSrv{teachers: []models.Teacher{{ID: "t7", Email: "ana@school.id"}}}
	h := NewAssignmentHandler(srv, teachers)

	c, rec := newTestContext(http.MethodPost, "/assignments/a1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	withClaims(c, models.RoleTeacher, "ana@school.id")
	h.Complete(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t7", srv.completedFor)
	assert.Equal(t, "Assignment marked as completed!", decodeEnvelope(t, rec).Meta["message"])
}

func TestAssignmentHandlerCompleteAllMessages(t *testing.T) {
	srv := &fakeAssignmentSrv{bulkResult: &models.BulkResult{SucceededIDs: []string{"a1", "a2"}, Succeeded: 2, Failed: []models.BulkFailure{}}}
	h := NewAssignmentHandler(srv, &fakeTeacherSrv{})

	c, rec := newTestContext(http.MethodPost, "/assignments/complete", nil)
	h.CompleteAll(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 assignment(s) marked as completed!", decodeEnvelope(t, rec).Meta["message"])

	srv.bulkErr = appErrors.Clone(appErrors.ErrNoOp, "no pending assignments to mark as completed")
	c, rec = newTestContext(http.MethodPost, "/assignments/complete", nil)
	h.CompleteAll(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMeHandlerScopesToSignedInTeacher(t *testing.T) {
	srv := &fakeAssignmentSrv{page: models.AssignmentPage{Items: []models.AssignmentRow{}, Page: 1, PageSize: 10}}
	teachers := &fakeTeacherSrv{teachers: []models.Teacher{{ID: "t7", Email: "ana@school.id"}}}
	h := NewMeHandler(teachers, srv, nil)

	c, rec := newTestContext(http.MethodGet, "/me/assignments?teacher_id=someone-else", nil)
	withClaims(c, models.RoleTeacher, "ANA@school.id")
	h.Assignments(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t7", srv.lastTeacher)

	c, rec = newTestContext(http.MethodGet, "/me/assignments", nil)
	withClaims(c, models.RoleTeacher, "stranger@school.id")
	h.Assignments(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakePoolSrv struct {
	err error
}

func (f *fakePoolSrv) Pools(context.Context) models.CodePools { return models.CodePools{} }

func (f *fakePoolSrv) SetPools(context.Context, models.SetupRequest) (models.CodePools, error) {
	if f.err != nil {
		return models.CodePools{}, f.err
	}
	return models.CodePools{SubjectCodes: []string{"S1"}}, nil
}

func (f *fakePoolSrv) FormOptions(context.Context) models.FormOptions { return models.FormOptions{} }

func TestSetupHandlerPut(t *testing.T) {
	h := NewSetupHandler(&fakePoolSrv{})
	c, rec := newTestContext(http.MethodPut, "/setup", models.SetupRequest{SubjectCodes: "S1"})
	h.Put(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Setup saved successfully!", decodeEnvelope(t, rec).Meta["message"])

	h = NewSetupHandler(&fakePoolSrv{err: appErrors.Clone(appErrors.ErrValidation, "all setup fields must contain at least one valid entry")})
	c, rec = newTestContext(http.MethodPut, "/setup", models.SetupRequest{})
	h.Put(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeExportSrv struct {
	lastFormat service.ExportFormat
}

func (f *fakeExportSrv) Render(_ context.Context, exportType service.ExportType, format service.ExportFormat) (*service.ExportFile, error) {
	f.lastFormat = format
	return &service.ExportFile{Filename: string(exportType) + "_2024-06-03.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("ID,Name,Email,Phone\n")}, nil
}

func TestExportHandlerDownload(t *testing.T) {
	srv := &fakeExportSrv{}
	h := NewExportHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/exports/teachers", nil)
	c.Params = gin.Params{{Key: "type", Value: "teachers"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.FormatCSV, srv.lastFormat)
	assert.Equal(t, `attachment; filename="teachers_2024-06-03.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "teachers exported successfully!", rec.Header().Get("X-Message"))
	assert.Equal(t, "ID,Name,Email,Phone\n", rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/exports/grades", nil)
	c.Params = gin.Params{{Key: "type", Value: "grades"}}
	h.Download(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
