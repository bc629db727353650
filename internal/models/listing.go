package models

// AssignmentPageSize is the fixed number of rows per listing page.
const AssignmentPageSize = 10

// UnknownTeacher labels rows whose teacher is missing from the directory.
const UnknownTeacher = "Unknown"

// AssignmentQuery filters the assignment listing.
type AssignmentQuery struct {
	Search    string           `form:"search"`
	TeacherID string           `form:"teacher_id"`
	Status    AssignmentStatus `form:"status"`
	Page      int              `form:"page"`
}

// AssignmentRow is an assignment with its resolved teacher name.
type AssignmentRow struct {
	Assignment
	TeacherName string `json:"teacher_name"`
}

// AssignmentPage is one page of the filtered listing.
type AssignmentPage struct {
	Items      []AssignmentRow `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	TotalCount int             `json:"total_count"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages,omitempty"`
}
