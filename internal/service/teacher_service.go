package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/internal/repository"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

type teacherRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// TeacherService owns the teacher directory.
type TeacherService struct {
	repo      teacherRepository
	store     *SnapshotStore
	validator *Validator
	notifier  changeNotifier
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, store *SnapshotStore, validate *Validator, feed ChangePublisher, cache *CacheService, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{
		repo:      repo,
		store:     store,
		validator: validate,
		notifier:  changeNotifier{feed: feed, cache: cache, logger: logger},
		logger:    logger,
	}
}

// List returns the directory in insertion order.
func (s *TeacherService) List(_ context.Context) []models.Teacher {
	return s.store.Current().Teachers
}

// Get returns a teacher by id.
func (s *TeacherService) Get(_ context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.store.Current().TeacherByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return &teacher, nil
}

// FindByEmail resolves the teacher behind a signed-in account.
func (s *TeacherService) FindByEmail(_ context.Context, email string) (*models.Teacher, error) {
	teacher, ok := s.store.Current().TeacherByEmail(strings.TrimSpace(email))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher is registered for this account")
	}
	return &teacher, nil
}

// Add registers a new teacher.
func (s *TeacherService) Add(ctx context.Context, input models.TeacherInput) (*models.Teacher, error) {
	input, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	if _, taken := s.store.Current().TeacherByEmail(input.Email); taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}

	teacher := &models.Teacher{Name: input.Name, Email: input.Email, Phone: input.Phone}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Backend(err, "failed to create teacher")
	}

	s.store.Update(func(next *Snapshot) { next.upsertTeacher(*teacher) })
	s.notifier.notify(ctx, models.CollectionTeachers)
	s.logger.Info("teacher added", zap.String("teacher_id", teacher.ID))
	return teacher, nil
}

// Update rewrites a teacher's name, email and phone.
func (s *TeacherService) Update(ctx context.Context, id string, input models.TeacherInput) (*models.Teacher, error) {
	input, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	snapshot := s.store.Current()
	existing, ok := snapshot.TeacherByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if other, taken := snapshot.TeacherByEmail(input.Email); taken && other.ID != id {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use by another teacher")
	}

	teacher := existing
	teacher.Name = input.Name
	teacher.Email = input.Email
	teacher.Phone = input.Phone
	if err := s.repo.Update(ctx, &teacher); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use by another teacher")
		case errors.Is(err, repository.ErrNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Backend(err, "failed to update teacher")
	}

	s.store.Update(func(next *Snapshot) { next.upsertTeacher(teacher) })
	s.notifier.notify(ctx, models.CollectionTeachers)
	return &teacher, nil
}

// Delete removes a teacher that no assignment references.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	snapshot := s.store.Current()
	if _, ok := snapshot.TeacherByID(id); !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if len(snapshot.AssignmentsByTeacher(id)) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete teacher with active assignments")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTeacherInUse):
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete teacher with active assignments")
		case errors.Is(err, repository.ErrNotFound):
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Backend(err, "failed to delete teacher")
	}

	s.store.Update(func(next *Snapshot) { next.removeTeacher(id) })
	s.notifier.notify(ctx, models.CollectionTeachers)
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}

func (s *TeacherService) validate(input models.TeacherInput) (models.TeacherInput, error) {
	input.Name = s.validator.PlainText(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := s.validator.Struct(input); err != nil {
		return input, err
	}
	return input, nil
}
