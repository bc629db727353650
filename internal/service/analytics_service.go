package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

const analyticsReportKey = "analytics:report"

// AnalyticsService serves workload statistics computed from the snapshot, cached in Redis
// until the next teacher or assignment change.
type AnalyticsService struct {
	store  *SnapshotStore
	cache  *CacheService
	logger *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(store *SnapshotStore, cache *CacheService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{store: store, cache: cache, logger: logger}
}

// Report returns the workload report. The boolean indicates whether it came from cache.
func (s *AnalyticsService) Report(ctx context.Context) (models.AnalyticsReport, bool, error) {
	var cached models.AnalyticsReport
	if hit, err := s.cache.Get(ctx, analyticsReportKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	snapshot := s.store.Current()
	report := ComputeAnalytics(snapshot.Teachers, snapshot.Assignments)
	if err := s.cache.Set(ctx, analyticsReportKey, report, 0); err != nil {
		s.logger.Warn("cache analytics report", zap.Error(err))
	}
	return report, false, nil
}

// TeacherReport returns one teacher's own totals.
func (s *AnalyticsService) TeacherReport(ctx context.Context, teacherID string) (models.TeacherAnalytics, bool, error) {
	key := fmt.Sprintf("analytics:teacher:%s", teacherID)
	var cached models.TeacherAnalytics
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	stats := ComputeTeacherAnalytics(teacherID, s.store.Current().Assignments)
	if err := s.cache.Set(ctx, key, stats, 0); err != nil {
		s.logger.Warn("cache teacher analytics", zap.String("teacher_id", teacherID), zap.Error(err))
	}
	return stats, false, nil
}
