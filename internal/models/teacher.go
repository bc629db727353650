package models

import "time"

// Teacher is a directory entry that assignments reference by ID.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherInput is the payload accepted by add and update.
type TeacherInput struct {
	Name  string `json:"name" validate:"teacher_name"`
	Email string `json:"email" validate:"teacher_email"`
	Phone string `json:"phone" validate:"omitempty,phone10"`
}
