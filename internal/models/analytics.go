package models

import "time"

// TeacherWorkload is one teacher's share of the exam load.
type TeacherWorkload struct {
	TeacherID       string  `json:"teacher_id"`
	Name            string  `json:"name"`
	TotalExams      int     `json:"total_exams"`
	CompletedExams  int     `json:"completed_exams"`
	WorkloadPercent float64 `json:"workload_percent"`
}

// AnalyticsReport aggregates workload across every teacher.
type AnalyticsReport struct {
	HasData    bool              `json:"has_data"`
	Teachers   []TeacherWorkload `json:"teachers"`
	TotalExams int               `json:"total_exams"`
}

// TeacherAnalytics summarises a single teacher's own assignments.
type TeacherAnalytics struct {
	TeacherID            string `json:"teacher_id"`
	TotalAssignments     int    `json:"total_assignments"`
	CompletedAssignments int    `json:"completed_assignments"`
	PendingAssignments   int    `json:"pending_assignments"`
	TotalExams           int    `json:"total_exams"`
	CompletedExams       int    `json:"completed_exams"`
	PendingExams         int    `json:"pending_exams"`
}

// SystemMetrics is a lightweight view of runtime instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SnapshotReloads          uint64    `json:"snapshot_reloads"`
	AverageReloadDurationMs  float64   `json:"average_reload_duration_ms"`
	SnapshotVersion          uint64    `json:"snapshot_version"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
