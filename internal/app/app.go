package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/repository"
	"github.com/noah-isme/exam-assign-api/internal/service"
	"github.com/noah-isme/exam-assign-api/pkg/cache"
	"github.com/noah-isme/exam-assign-api/pkg/config"
	"github.com/noah-isme/exam-assign-api/pkg/database"
)

// App holds the wired services shared by the API server and the examctl CLI.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Redis   *redis.Client
	Feed    repository.ChangeFeed
	Metrics *service.MetricsService
	Store   *service.SnapshotStore

	Teachers    *service.TeacherService
	Assignments *service.AssignmentService
	Pools       *service.CodePoolService
	Analytics   *service.AnalyticsService
	Exports     *service.ExportService
	Auth        *service.AuthService
	Sync        *service.SyncService

	cacheRepo *repository.CacheRepository
}

// New connects to the configured backends and wires every service. The snapshot is
// empty until Sync.Load or Sync.Start runs.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	metrics := service.NewMetricsService()
	store := service.NewSnapshotStore(metrics)
	feed := repository.NewChangeFeed(redisClient, db, cfg.Changes.PollInterval, logger)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logger, cacheRepo.Enabled())
	validator := service.NewValidator()

	teacherRepo := repository.NewTeacherRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	poolRepo := repository.NewCodePoolRepository(db)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Redis:     redisClient,
		Feed:      feed,
		Metrics:   metrics,
		Store:     store,
		cacheRepo: cacheRepo,
	}
	a.Teachers = service.NewTeacherService(teacherRepo, store, validator, feed, cacheSvc, logger)
	a.Assignments = service.NewAssignmentService(assignmentRepo, store, validator, feed, cacheSvc, metrics, cfg.Ledger.BulkConcurrency, logger)
	a.Pools = service.NewCodePoolService(poolRepo, store, feed, logger)
	a.Analytics = service.NewAnalyticsService(store, cacheSvc, logger)
	a.Exports = service.NewExportService(store, service.ExportConfig{PDFEnabled: cfg.Exports.PDFEnabled}, logger, nil, nil)
	a.Auth = service.NewAuthService(cfg.JWT.Secret)
	a.Sync = service.NewSyncService(teacherRepo, assignmentRepo, poolRepo, feed, store, cacheSvc, metrics, logger)

	logger.Info("application wired",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("redis", redisClient != nil),
	)
	return a, nil
}

// Close releases the backend connections.
func (a *App) Close() error {
	var firstErr error
	if err := a.cacheRepo.Close(); err != nil {
		firstErr = err
	}
	if err := a.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
