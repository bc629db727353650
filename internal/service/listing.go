package service

import (
	"strings"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

// ListAssignments filters and paginates the ledger. It never mutates its inputs.
//
// Rows keep source order. A search term, whitespace included, matches the resolved
// teacher name as a case-insensitive substring. Rows whose teacher cannot be resolved
// are labelled "Unknown" and never match an active search. The requested page is
// clamped into [1, max(totalPages, 1)].
func ListAssignments(assignments []models.Assignment, teachers []models.Teacher, query models.AssignmentQuery) models.AssignmentPage {
	names := make(map[string]string, len(teachers))
	for _, teacher := range teachers {
		names[teacher.ID] = teacher.Name
	}

	term := strings.ToLower(query.Search)
	filtered := make([]models.AssignmentRow, 0, len(assignments))
	for _, assignment := range assignments {
		name, resolved := names[assignment.TeacherID]
		if term != "" && (!resolved || !strings.Contains(strings.ToLower(name), term)) {
			continue
		}
		if query.TeacherID != "" && assignment.TeacherID != query.TeacherID {
			continue
		}
		if query.Status != "" && assignment.Status != query.Status {
			continue
		}
		if !resolved {
			name = models.UnknownTeacher
		}
		filtered = append(filtered, models.AssignmentRow{Assignment: assignment, TeacherName: name})
	}

	pageSize := models.AssignmentPageSize
	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	page := query.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return models.AssignmentPage{
		Items:      filtered[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: total,
	}
}

// ComputeAnalytics sums exam totals per teacher in directory order. With no
// teachers or no assignments the report carries HasData=false and no rows.
func ComputeAnalytics(teachers []models.Teacher, assignments []models.Assignment) models.AnalyticsReport {
	report := models.AnalyticsReport{Teachers: []models.TeacherWorkload{}}
	if len(teachers) == 0 || len(assignments) == 0 {
		return report
	}

	totals := make(map[string]int, len(teachers))
	completed := make(map[string]int, len(teachers))
	grand := 0
	for _, assignment := range assignments {
		totals[assignment.TeacherID] += assignment.TotalExams
		if assignment.Status == models.StatusCompleted {
			completed[assignment.TeacherID] += assignment.TotalExams
		}
		grand += assignment.TotalExams
	}

	report.HasData = true
	report.TotalExams = grand
	for _, teacher := range teachers {
		workload := models.TeacherWorkload{
			TeacherID:      teacher.ID,
			Name:           teacher.Name,
			TotalExams:     totals[teacher.ID],
			CompletedExams: completed[teacher.ID],
		}
		if grand > 0 {
			workload.WorkloadPercent = float64(workload.TotalExams) / float64(grand) * 100
		}
		report.Teachers = append(report.Teachers, workload)
	}
	return report
}

// ComputeTeacherAnalytics summarises one teacher's own assignments.
func ComputeTeacherAnalytics(teacherID string, assignments []models.Assignment) models.TeacherAnalytics {
	stats := models.TeacherAnalytics{TeacherID: teacherID}
	for _, assignment := range assignments {
		if assignment.TeacherID != teacherID {
			continue
		}
		stats.TotalAssignments++
		stats.TotalExams += assignment.TotalExams
		if assignment.Status == models.StatusCompleted {
			stats.CompletedAssignments++
			stats.CompletedExams += assignment.TotalExams
		} else {
			stats.PendingAssignments++
			stats.PendingExams += assignment.TotalExams
		}
	}
	return stats
}

// availableCodes returns pool entries in pool order minus the codes already in use.
func availableCodes(pool []string, used func(models.Assignment) string, assignments []models.Assignment) []string {
	taken := make(map[string]struct{}, len(assignments))
	for _, assignment := range assignments {
		taken[used(assignment)] = struct{}{}
	}
	available := []string{}
	for _, code := range pool {
		if _, ok := taken[code]; !ok {
			available = append(available, code)
		}
	}
	return available
}
