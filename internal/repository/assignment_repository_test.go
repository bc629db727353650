package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

var assignmentRowColumns = []string{"id", "teacher_id", "subject_code", "shift", "packet_code", "total_exams", "due_date", "is_external", "status", "date", "year", "created_at", "updated_at"}

var (
	lockTeacherQuery  = regexp.QuoteMeta("SELECT id FROM teachers WHERE id = $1 FOR UPDATE")
	availabilityQuery = regexp.QuoteMeta("SELECT COUNT(1) FROM assignments WHERE teacher_id = $1 AND due_date = $2 AND status <> $3 AND id <> $4")
)

func sampleAssignment() *models.Assignment {
	return &models.Assignment{
		TeacherID:   "t1",
		SubjectCode: "S1",
		Shift:       "Morning",
		PacketCode:  "P1",
		TotalExams:  5,
		DueDate:     "2024-06-01",
		Status:      models.StatusPending,
		Date:        "2024-05-20",
		Year:        "2024",
	}
}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockTeacherQuery).WithArgs("t1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))
	mock.ExpectQuery(availabilityQuery).
		WithArgs("t1", "2024-06-01", "Completed", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignment := sampleAssignment()
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateUnavailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockTeacherQuery).WithArgs("t1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))
	mock.ExpectQuery(availabilityQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleAssignment())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateCompletedSkipsAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockTeacherQuery).WithArgs("t1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignment := sampleAssignment()
	assignment.Status = models.StatusCompleted
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateMissingTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockTeacherQuery).WithArgs("t1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleAssignment())
	assert.ErrorIs(t, err, ErrTeacherNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateDuplicateCodes(t *testing.T) {
	cases := map[string]struct {
		constraint string
		want       error
	}{
		"subject": {constraint: "assignments_subject_code_idx", want: ErrDuplicateSubject},
		"packet":  {constraint: "assignments_packet_code_idx", want: ErrDuplicatePacket},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock, cleanup := newRepoMock(t)
			defer cleanup()
			repo := NewAssignmentRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(lockTeacherQuery).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))
			mock.ExpectQuery(availabilityQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			mock.ExpectExec("INSERT INTO assignments").WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})
			mock.ExpectRollback()

			err := repo.Create(context.Background(), sampleAssignment())
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAssignmentRepositoryUpdateExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	assignment := sampleAssignment()
	assignment.ID = "a1"

	mock.ExpectBegin()
	mock.ExpectQuery(lockTeacherQuery).WithArgs("t1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))
	mock.ExpectQuery(availabilityQuery).
		WithArgs("t1", "2024-06-01", "Completed", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE assignments SET teacher_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), assignment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("a9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "a9"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryMarkCompleted(t *testing.T) {
	updateQuery := regexp.QuoteMeta("UPDATE assignments SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $4")
	selectQuery := regexp.QuoteMeta("FROM assignments WHERE id = $1")
	now := time.Now()
	completedRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(assignmentRowColumns).
			AddRow("a1", "t1", "S1", "Morning", "P1", 5, "2024-06-01", false, "Completed", "2024-05-20", "2024", now, now)
	}

	t.Run("first completion", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		mock.ExpectExec(updateQuery).
			WithArgs("Completed", sqlmock.AnyArg(), "a1", "Completed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(selectQuery).WithArgs("a1").WillReturnRows(completedRow())

		assignment, err := NewAssignmentRepository(db).MarkCompleted(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, assignment.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already completed", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		mock.ExpectExec(updateQuery).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectQuery).WithArgs("a1").WillReturnRows(completedRow())

		_, err := NewAssignmentRepository(db).MarkCompleted(context.Background(), "a1")
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		mock.ExpectExec(updateQuery).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectQuery).WithArgs("a9").WillReturnRows(sqlmock.NewRows(assignmentRowColumns))

		_, err := NewAssignmentRepository(db).MarkCompleted(context.Background(), "a9")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAssignmentRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE teacher_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("a1", "t1", "S1", "Morning", "P1", 5, "2024-06-01", true, "Pending", "2024-05-20", "2024", now, now))

	list, err := NewAssignmentRepository(db).ListByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsExternal)
	assert.Equal(t, models.StatusPending, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
