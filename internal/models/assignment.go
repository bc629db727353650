package models

import "time"

// AssignmentStatus tracks the checking progress of an assignment.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "Pending"
	StatusCompleted AssignmentStatus = "Completed"
)

// Valid reports whether the status is a known state.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted:
		return true
	}
	return false
}

// DateLayout is the calendar date format used for due dates and creation dates.
const DateLayout = "2006-01-02"

// Assignment is a unit of exam-checking work given to one teacher.
type Assignment struct {
	ID          string           `db:"id" json:"id"`
	TeacherID   string           `db:"teacher_id" json:"teacher_id"`
	SubjectCode string           `db:"subject_code" json:"subject_code"`
	Shift       string           `db:"shift" json:"shift"`
	PacketCode  string           `db:"packet_code" json:"packet_code"`
	TotalExams  int              `db:"total_exams" json:"total_exams"`
	DueDate     string           `db:"due_date" json:"due_date"`
	IsExternal  bool             `db:"is_external" json:"is_external"`
	Status      AssignmentStatus `db:"status" json:"status"`
	Date        string           `db:"date" json:"date"`
	Year        string           `db:"year" json:"year"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// IsPending reports whether the assignment still blocks its teacher's due date.
func (a Assignment) IsPending() bool {
	return a.Status != StatusCompleted
}

// AssignmentInput is the payload accepted by save and update.
type AssignmentInput struct {
	TeacherID   string           `json:"teacher_id"`
	SubjectCode string           `json:"subject_code"`
	Shift       string           `json:"shift"`
	PacketCode  string           `json:"packet_code"`
	TotalExams  int              `json:"total_exams" validate:"gt=0"`
	DueDate     string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	IsExternal  bool             `json:"is_external"`
	Status      AssignmentStatus `json:"status" validate:"omitempty,oneof=Pending Completed"`
}

// BulkFailure names one assignment a bulk operation could not update.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult aggregates the outcome of independent writes.
type BulkResult struct {
	SucceededIDs []string      `json:"succeeded_ids"`
	Failed       []BulkFailure `json:"failed"`
	Succeeded    int           `json:"succeeded"`
	FailedCount  int           `json:"failed_count"`
}
