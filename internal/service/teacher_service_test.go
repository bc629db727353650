package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/internal/repository"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

func newTeacherServiceForTest(teachers []models.Teacher, assignments []models.Assignment) (*TeacherService, *fakeTeacherRepo, *SnapshotStore, *stubCacheRepo) {
	repo := &fakeTeacherRepo{items: map[string]models.Teacher{}}
	for _, teacher := range teachers {
		repo.items[teacher.ID] = teacher
	}
	repo.seq = len(teachers)
	store := seededStore(teachers, assignments)
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewTeacherService(repo, store, NewValidator(), &recordingPublisher{}, cache, zap.NewNop())
	return svc, repo, store, cacheRepo
}

func TestTeacherServiceAdd(t *testing.T) {
	svc, _, store, cacheRepo := newTeacherServiceForTest(nil, nil)

	teacher, err := svc.Add(context.Background(), models.TeacherInput{Name: "  <b>Ana</b> ", Email: "ana@school.id", Phone: "0812345678"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", teacher.Name)
	assert.NotEmpty(t, teacher.ID)
	assert.Len(t, store.Current().Teachers, 1)
	assert.Equal(t, []string{analyticsCachePattern}, cacheRepo.invalidated)
}

func TestTeacherServiceAddRejectsInvalidInput(t *testing.T) {
	svc, repo, _, _ := newTeacherServiceForTest(nil, nil)

	_, err := svc.Add(context.Background(), models.TeacherInput{Name: "A", Email: "ana", Phone: "123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "Name must be at least 2 characters, Invalid email format, Phone must be 10 digits", appErrors.FromError(err).Message)
	assert.Empty(t, repo.items)
}

func TestTeacherServiceEmailConflicts(t *testing.T) {
	existing := []models.Teacher{
		{ID: "t1", Name: "Ana", Email: "ana@school.id"},
		{ID: "t2", Name: "Budi", Email: "budi@school.id"},
	}
	svc, repo, _, _ := newTeacherServiceForTest(existing, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.TeacherInput{Name: "Another Ana", Email: "ANA@school.id"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "email already exists", appErrors.FromError(err).Message)

	_, err = svc.Update(ctx, "t2", models.TeacherInput{Name: "Budi", Email: "ana@school.id"})
	require.Error(t, err)
	assert.Equal(t, "email already in use by another teacher", appErrors.FromError(err).Message)

	updated, err := svc.Update(ctx, "t1", models.TeacherInput{Name: "Ana Maria", Email: "ana@school.id"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)

	repo.createErr = repository.ErrDuplicateEmail
	_, err = svc.Add(ctx, models.TeacherInput{Name: "Citra", Email: "citra@school.id"})
	assert.Equal(t, "email already exists", appErrors.FromError(err).Message)
}

func TestTeacherServiceDeleteBlockedByAssignments(t *testing.T) {
	teachers := []models.Teacher{{ID: "t1", Name: "Ana", Email: "ana@school.id"}}
	assignments := []models.Assignment{{ID: "a1", TeacherID: "t1", SubjectCode: "S1", PacketCode: "P1", TotalExams: 3, Status: models.StatusPending}}
	svc, repo, store, _ := newTeacherServiceForTest(teachers, assignments)
	ctx := context.Background()

	err := svc.Delete(ctx, "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "cannot delete teacher with active assignments", appErrors.FromError(err).Message)

	assignmentSvc := NewAssignmentService(&fakeAssignmentRepo{items: map[string]models.Assignment{"a1": assignments[0]}}, store, nil, nil, nil, nil, 1, zap.NewNop())
	require.NoError(t, assignmentSvc.Delete(ctx, "a1"))

	require.NoError(t, svc.Delete(ctx, "t1"))
	assert.Empty(t, store.Current().Teachers)
	assert.Empty(t, repo.items)

	assert.ErrorIs(t, svc.Delete(ctx, "t1"), appErrors.ErrNotFound)
}

func TestTeacherServiceDeleteMapsCommitTimeReference(t *testing.T) {
	svc, repo, store, _ := newTeacherServiceForTest([]models.Teacher{{ID: "t1", Name: "Ana", Email: "ana@school.id"}}, nil)
	repo.deleteErr = repository.ErrTeacherInUse

	err := svc.Delete(context.Background(), "t1")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Len(t, store.Current().Teachers, 1)
}

func TestTeacherServiceFindByEmail(t *testing.T) {
	svc, _, _, _ := newTeacherServiceForTest([]models.Teacher{{ID: "t1", Name: "Ana", Email: "ana@school.id"}}, nil)

	teacher, err := svc.FindByEmail(context.Background(), " Ana@School.id ")
	require.NoError(t, err)
	assert.Equal(t, "t1", teacher.ID)

	_, err = svc.FindByEmail(context.Background(), "nobody@school.id")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
