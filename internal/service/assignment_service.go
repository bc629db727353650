package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/internal/repository"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

const defaultBulkConcurrency = 4

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) (*models.Assignment, error)
}

// AssignmentService is the assignment ledger: it enforces code uniqueness, the teacher
// availability rule and the Pending to Completed state machine. Checks run against the
// snapshot first; the repository re-checks at commit time.
type AssignmentService struct {
	repo            assignmentRepository
	store           *SnapshotStore
	validator       *Validator
	notifier        changeNotifier
	metrics         *MetricsService
	logger          *zap.Logger
	bulkConcurrency int
	now             func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, store *SnapshotStore, validate *Validator, feed ChangePublisher, cache *CacheService, metrics *MetricsService, bulkConcurrency int, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bulkConcurrency <= 0 {
		bulkConcurrency = defaultBulkConcurrency
	}
	return &AssignmentService{
		repo:            repo,
		store:           store,
		validator:       validate,
		notifier:        changeNotifier{feed: feed, cache: cache, logger: logger},
		metrics:         metrics,
		logger:          logger,
		bulkConcurrency: bulkConcurrency,
		now:             time.Now,
	}
}

// List runs the listing engine over the current snapshot.
func (s *AssignmentService) List(_ context.Context, query models.AssignmentQuery) models.AssignmentPage {
	snapshot := s.store.Current()
	return ListAssignments(snapshot.Assignments, snapshot.Teachers, query)
}

// ListByTeacher lists only the given teacher's assignments.
func (s *AssignmentService) ListByTeacher(ctx context.Context, teacherID string, query models.AssignmentQuery) models.AssignmentPage {
	query.TeacherID = teacherID
	return s.List(ctx, query)
}

// Get returns one assignment.
func (s *AssignmentService) Get(_ context.Context, id string) (*models.Assignment, error) {
	assignment, ok := s.store.Current().AssignmentByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return &assignment, nil
}

// Save creates an assignment stamped with today's date and year.
func (s *AssignmentService) Save(ctx context.Context, input models.AssignmentInput) (*models.Assignment, error) {
	input, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	if err := s.checkInvariants(s.store.Current(), "", input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	assignment := &models.Assignment{
		TeacherID:   input.TeacherID,
		SubjectCode: input.SubjectCode,
		Shift:       input.Shift,
		PacketCode:  input.PacketCode,
		TotalExams:  input.TotalExams,
		DueDate:     input.DueDate,
		IsExternal:  input.IsExternal,
		Status:      input.Status,
		Date:        now.Format(models.DateLayout),
		Year:        now.Format("2006"),
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, s.mapWriteError(err, input, "failed to save assignment")
	}

	s.store.Update(func(next *Snapshot) { next.upsertAssignment(*assignment) })
	s.notifier.notify(ctx, models.CollectionAssignments)
	s.metrics.AssignmentSaved("create")
	s.logger.Info("assignment saved",
		zap.String("assignment_id", assignment.ID),
		zap.String("teacher_id", assignment.TeacherID),
		zap.String("subject_code", assignment.SubjectCode),
	)
	return assignment, nil
}

// Update rewrites an assignment. Its id, date, year and creation time are kept.
func (s *AssignmentService) Update(ctx context.Context, id string, input models.AssignmentInput) (*models.Assignment, error) {
	snapshot := s.store.Current()
	existing, ok := snapshot.AssignmentByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	input, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	if err := s.checkInvariants(snapshot, id, input); err != nil {
		return nil, err
	}

	assignment := existing
	assignment.TeacherID = input.TeacherID
	assignment.SubjectCode = input.SubjectCode
	assignment.Shift = input.Shift
	assignment.PacketCode = input.PacketCode
	assignment.TotalExams = input.TotalExams
	assignment.DueDate = input.DueDate
	assignment.IsExternal = input.IsExternal
	assignment.Status = input.Status
	if err := s.repo.Update(ctx, &assignment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, s.mapWriteError(err, input, "failed to update assignment")
	}

	s.store.Update(func(next *Snapshot) { next.upsertAssignment(assignment) })
	s.notifier.notify(ctx, models.CollectionAssignments)
	s.metrics.AssignmentSaved("update")
	return &assignment, nil
}

// Delete removes an assignment and frees its codes.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Backend(err, "failed to delete assignment")
	}

	s.store.Update(func(next *Snapshot) { next.removeAssignment(id) })
	s.notifier.notify(ctx, models.CollectionAssignments)
	s.logger.Info("assignment deleted", zap.String("assignment_id", id))
	return nil
}

// MarkCompleted moves a pending assignment to Completed.
func (s *AssignmentService) MarkCompleted(ctx context.Context, id string) (*models.Assignment, error) {
	existing, ok := s.store.Current().AssignmentByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if !existing.IsPending() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already completed")
	}

	completed, err := s.complete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store.Update(func(next *Snapshot) { next.upsertAssignment(*completed) })
	s.notifier.notify(ctx, models.CollectionAssignments)
	s.metrics.AssignmentsCompleted(1)
	return completed, nil
}

// MarkCompletedForTeacher completes an assignment only when teacherID owns it.
func (s *AssignmentService) MarkCompletedForTeacher(ctx context.Context, id, teacherID string) (*models.Assignment, error) {
	existing, ok := s.store.Current().AssignmentByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if existing.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	return s.MarkCompleted(ctx, id)
}

// BulkMarkCompleted completes every pending assignment as independent writes.
// Writes that fail are reported and are not retried; successful ones are not rolled back.
func (s *AssignmentService) BulkMarkCompleted(ctx context.Context) (*models.BulkResult, error) {
	pending := s.store.Current().PendingAssignments()
	if len(pending) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoOp, "no pending assignments to mark as completed")
	}

	completed := make([]*models.Assignment, len(pending))
	failures := make([]error, len(pending))

	g := new(errgroup.Group)
	g.SetLimit(s.bulkConcurrency)
	for i, assignment := range pending {
		i, id := i, assignment.ID
		g.Go(func() error {
			completed[i], failures[i] = s.complete(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	result := &models.BulkResult{SucceededIDs: []string{}, Failed: []models.BulkFailure{}}
	var done []models.Assignment
	for i, assignment := range pending {
		if failures[i] != nil {
			result.Failed = append(result.Failed, models.BulkFailure{ID: assignment.ID, Reason: appErrors.FromError(failures[i]).Message})
			continue
		}
		result.SucceededIDs = append(result.SucceededIDs, assignment.ID)
		done = append(done, *completed[i])
	}
	result.Succeeded = len(result.SucceededIDs)
	result.FailedCount = len(result.Failed)

	if len(done) > 0 {
		s.store.Update(func(next *Snapshot) {
			for _, assignment := range done {
				next.upsertAssignment(assignment)
			}
		})
		s.notifier.notify(ctx, models.CollectionAssignments)
	}
	s.metrics.AssignmentsCompleted(result.Succeeded)
	s.metrics.BulkFailures(result.FailedCount)
	s.logger.Info("bulk completion finished", zap.Int("succeeded", result.Succeeded), zap.Int("failed", result.FailedCount))
	return result, nil
}

func (s *AssignmentService) complete(ctx context.Context, id string) (*models.Assignment, error) {
	completed, err := s.repo.MarkCompleted(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyCompleted):
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already completed")
		case errors.Is(err, repository.ErrNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Backend(err, "failed to mark assignment as completed")
	}
	return completed, nil
}

func (s *AssignmentService) validate(input models.AssignmentInput) (models.AssignmentInput, error) {
	input.TeacherID = strings.TrimSpace(input.TeacherID)
	input.SubjectCode = strings.TrimSpace(input.SubjectCode)
	input.PacketCode = strings.TrimSpace(input.PacketCode)
	input.Shift = strings.TrimSpace(input.Shift)
	input.DueDate = strings.TrimSpace(input.DueDate)
	if input.TeacherID == "" || input.SubjectCode == "" || input.PacketCode == "" {
		return input, appErrors.Clone(appErrors.ErrValidation, "teacher, subject code, and packet code are required")
	}
	if input.Status == "" {
		input.Status = models.StatusPending
	}
	if err := s.validator.Struct(input); err != nil {
		return input, err
	}
	return input, nil
}

// checkInvariants enforces teacher existence, code uniqueness and availability against
// the snapshot, ignoring the record identified by selfID.
func (s *AssignmentService) checkInvariants(snapshot *Snapshot, selfID string, input models.AssignmentInput) error {
	if _, ok := snapshot.TeacherByID(input.TeacherID); !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	pending := input.Status != models.StatusCompleted
	var subjectTaken, packetTaken, unavailable bool
	for _, other := range snapshot.Assignments {
		if other.ID == selfID {
			continue
		}
		subjectTaken = subjectTaken || other.SubjectCode == input.SubjectCode
		packetTaken = packetTaken || other.PacketCode == input.PacketCode
		unavailable = unavailable || (pending && other.IsPending() && other.TeacherID == input.TeacherID && other.DueDate == input.DueDate)
	}
	switch {
	case subjectTaken:
		return subjectConflict(input.SubjectCode)
	case packetTaken:
		return packetConflict(input.PacketCode)
	case unavailable:
		return appErrors.Clone(appErrors.ErrConflict, "teacher not available on this date")
	}
	return nil
}

func (s *AssignmentService) mapWriteError(err error, input models.AssignmentInput, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateSubject):
		return subjectConflict(input.SubjectCode)
	case errors.Is(err, repository.ErrDuplicatePacket):
		return packetConflict(input.PacketCode)
	case errors.Is(err, repository.ErrUnavailable):
		return appErrors.Clone(appErrors.ErrConflict, "teacher not available on this date")
	case errors.Is(err, repository.ErrTeacherNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return appErrors.Backend(err, message)
}

func subjectConflict(code string) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("subject code %s is already assigned", code))
}

func packetConflict(code string) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("packet code %s is already assigned", code))
}
