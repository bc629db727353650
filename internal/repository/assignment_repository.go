package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

const assignmentColumns = "id, teacher_id, subject_code, shift, packet_code, total_exams, due_date, is_external, status, date, year, created_at, updated_at"

// AssignmentRepository persists the assignment ledger. Writes re-check the
// availability rule and rely on unique indexes for subject and packet codes,
// so concurrent writers cannot break the ledger invariants.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns every assignment in insertion order.
func (r *AssignmentRepository) List(ctx context.Context) ([]models.Assignment, error) {
	query := "SELECT " + assignmentColumns + " FROM assignments ORDER BY created_at ASC, id ASC"
	assignments := []models.Assignment{}
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListByTeacher returns assignments owned by a teacher in insertion order.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error) {
	query := r.db.Rebind("SELECT " + assignmentColumns + " FROM assignments WHERE teacher_id = ? ORDER BY created_at ASC, id ASC")
	assignments := []models.Assignment{}
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}

// FindByID fetches one assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := r.db.Rebind("SELECT " + assignmentColumns + " FROM assignments WHERE id = ?")
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// Create inserts a new assignment after re-checking teacher existence and availability.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	return r.inTx(ctx, "create assignment", func(tx *sqlx.Tx) error {
		if err := r.guard(ctx, tx, assignment); err != nil {
			return err
		}
		const query = `INSERT INTO assignments (` + assignmentColumns + `)
			VALUES (:id, :teacher_id, :subject_code, :shift, :packet_code, :total_exams, :due_date, :is_external, :status, :date, :year, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, assignment); err != nil {
			return fmt.Errorf("insert assignment: %w", mapAssignmentUnique(err))
		}
		return nil
	})
}

// Update rewrites the mutable fields of an assignment. ID, date, year and created_at are preserved.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()

	return r.inTx(ctx, "update assignment", func(tx *sqlx.Tx) error {
		if err := r.guard(ctx, tx, assignment); err != nil {
			return err
		}
		const query = `UPDATE assignments SET teacher_id = :teacher_id, subject_code = :subject_code, shift = :shift,
			packet_code = :packet_code, total_exams = :total_exams, due_date = :due_date, is_external = :is_external,
			status = :status, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, assignment)
		if err != nil {
			return fmt.Errorf("update assignment: %w", mapAssignmentUnique(err))
		}
		return expectOneRow(res, "update assignment")
	})
}

// Delete removes an assignment, freeing its subject and packet codes.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM assignments WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectOneRow(res, "delete assignment")
}

// MarkCompleted moves a pending assignment to Completed. The status guard in the
// UPDATE makes a second completion fail with ErrAlreadyCompleted.
func (r *AssignmentRepository) MarkCompleted(ctx context.Context, id string) (*models.Assignment, error) {
	query := r.db.Rebind("UPDATE assignments SET status = ?, updated_at = ? WHERE id = ? AND status <> ?")
	res, err := r.db.ExecContext(ctx, query, models.StatusCompleted, time.Now().UTC(), id, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	if err := expectOneRow(res, "complete assignment"); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrAlreadyCompleted
	}
	return r.FindByID(ctx, id)
}

// guard locks the teacher row (PostgreSQL) and enforces the availability rule:
// at most one non-completed assignment per teacher and due date.
func (r *AssignmentRepository) guard(ctx context.Context, tx *sqlx.Tx, assignment *models.Assignment) error {
	var teacherID string
	lockQuery := tx.Rebind("SELECT id FROM teachers WHERE id = ?" + r.lockClause())
	if err := tx.GetContext(ctx, &teacherID, lockQuery, assignment.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeacherNotFound
		}
		return fmt.Errorf("lock teacher: %w", err)
	}

	if !assignment.IsPending() {
		return nil
	}

	var clashes int
	clashQuery := tx.Rebind("SELECT COUNT(1) FROM assignments WHERE teacher_id = ? AND due_date = ? AND status <> ? AND id <> ?")
	if err := tx.GetContext(ctx, &clashes, clashQuery, assignment.TeacherID, assignment.DueDate, models.StatusCompleted, assignment.ID); err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if clashes > 0 {
		return ErrUnavailable
	}
	return nil
}

func (r *AssignmentRepository) lockClause() string {
	if r.db.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

func (r *AssignmentRepository) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
