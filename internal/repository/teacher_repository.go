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

const teacherColumns = "id, name, email, phone, created_at, updated_at"

// TeacherRepository manages persistence for the teacher directory.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns every teacher in insertion order.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers ORDER BY created_at ASC, id ASC"
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := r.db.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE id = ?")
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// FindByEmail fetches a teacher by email, ignoring case.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	query := r.db.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE LOWER(email) = LOWER(?)")
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find teacher by email: %w", err)
	}
	return &teacher, nil
}

// Create inserts a new teacher record. The unique email index rejects
// case-insensitive duplicates with ErrDuplicateEmail.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, name, email, phone, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		if mapped := mapTeacherUnique(err); errors.Is(mapped, ErrDuplicateEmail) {
			return mapped
		}
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies name, email and phone. ID and created_at are never written.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		if mapped := mapTeacherUnique(err); errors.Is(mapped, ErrDuplicateEmail) {
			return mapped
		}
		return fmt.Errorf("update teacher: %w", err)
	}
	return expectOneRow(res, "update teacher")
}

// Delete removes a teacher only when no assignment references it.
// The reference check runs inside the DELETE so a concurrent save cannot slip in between.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete teacher: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := tx.Rebind(`DELETE FROM teachers WHERE id = ? AND NOT EXISTS (SELECT 1 FROM assignments WHERE teacher_id = ?)`)
	res, err := tx.ExecContext(ctx, query, id, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete teacher rows: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT COUNT(1) FROM teachers WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("check teacher: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrTeacherInUse
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete teacher: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
