package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

const analyticsCachePattern = "analytics:*"

type teacherLister interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type assignmentLister interface {
	List(ctx context.Context) ([]models.Assignment, error)
}

type poolReader interface {
	Get(ctx context.Context) (models.CodePools, error)
}

// ChangePublisher announces writes to a collection.
type ChangePublisher interface {
	Publish(ctx context.Context, collection models.Collection) error
}

// ChangeSubscriber delivers change notifications until ctx is cancelled.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, collections ...models.Collection) (<-chan models.Change, error)
}

// changeNotifier publishes change notifications after successful writes and drops cached
// analytics so no reader sees a report older than the snapshot.
type changeNotifier struct {
	feed   ChangePublisher
	cache  *CacheService
	logger *zap.Logger
}

func (n changeNotifier) notify(ctx context.Context, collections ...models.Collection) {
	for _, collection := range collections {
		if collection == models.CollectionTeachers || collection == models.CollectionAssignments {
			_ = n.cache.Invalidate(ctx, analyticsCachePattern)
			break
		}
	}
	if n.feed == nil {
		return
	}
	for _, collection := range collections {
		if err := n.feed.Publish(ctx, collection); err != nil {
			n.logger.Warn("publish change notification failed", zap.String("collection", string(collection)), zap.Error(err))
		}
	}
}

// SyncService keeps the snapshot in line with the backend: one full load at start,
// then an authoritative reload of each collection named by a change notification.
type SyncService struct {
	teachers    teacherLister
	assignments assignmentLister
	pools       poolReader
	feed        ChangeSubscriber
	store       *SnapshotStore
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSyncService constructs a SyncService.
func NewSyncService(teachers teacherLister, assignments assignmentLister, pools poolReader, feed ChangeSubscriber, store *SnapshotStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		teachers:    teachers,
		assignments: assignments,
		pools:       pools,
		feed:        feed,
		store:       store,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// Load reads every collection concurrently and installs them as one snapshot.
func (s *SyncService) Load(ctx context.Context) error {
	var (
		teachers    []models.Teacher
		assignments []models.Assignment
		pools       models.CodePools
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		teachers, err = s.teachers.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.assignments.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		pools, err = s.pools.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	snapshot := s.store.Update(func(next *Snapshot) {
		next.Teachers = teachers
		next.Assignments = assignments
		next.Pools = pools
	})
	s.logger.Info("snapshot loaded",
		zap.Int("teachers", len(teachers)),
		zap.Int("assignments", len(assignments)),
		zap.Uint64("version", snapshot.Version),
	)
	return nil
}

// Reload replaces one collection with the backend's current contents. Any pool
// collection reloads all four pools since they are stored together.
func (s *SyncService) Reload(ctx context.Context, collection models.Collection) error {
	start := time.Now()
	err := s.reload(ctx, collection)
	s.metrics.ObserveReload(collection, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("reload %s: %w", collection, err)
	}
	if collection == models.CollectionTeachers || collection == models.CollectionAssignments {
		_ = s.cache.Invalidate(ctx, analyticsCachePattern)
	}
	return nil
}

func (s *SyncService) reload(ctx context.Context, collection models.Collection) error {
	switch collection {
	case models.CollectionTeachers:
		teachers, err := s.teachers.List(ctx)
		if err != nil {
			return err
		}
		s.store.ReplaceTeachers(teachers)
	case models.CollectionAssignments:
		assignments, err := s.assignments.List(ctx)
		if err != nil {
			return err
		}
		s.store.ReplaceAssignments(assignments)
	case models.CollectionSubjectCodes, models.CollectionShifts, models.CollectionPacketCodes, models.CollectionTotalExamsOptions:
		pools, err := s.pools.Get(ctx)
		if err != nil {
			return err
		}
		s.store.ReplacePools(pools)
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
	return nil
}

// Run subscribes to change notifications, performs the initial load and then applies
// notifications until ctx is done. Subscribing first means no write between the load and
// the subscription goes unseen.
func (s *SyncService) Run(ctx context.Context) error {
	changes, err := s.start(ctx)
	if err != nil {
		return err
	}
	s.consume(ctx, changes)
	return nil
}

// Start is Run with the notification loop moved to a goroutine. It returns once the
// initial snapshot is installed.
func (s *SyncService) Start(ctx context.Context) error {
	changes, err := s.start(ctx)
	if err != nil {
		return err
	}
	go s.consume(ctx, changes)
	return nil
}

func (s *SyncService) start(ctx context.Context) (<-chan models.Change, error) {
	changes, err := s.feed.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return changes, nil
}

// consume reloads the collections named by notifications. A failed reload is logged
// and the previous snapshot keeps serving.
func (s *SyncService) consume(ctx context.Context, changes <-chan models.Change) {
	for change := range changes {
		for _, collection := range coalesce(change, changes) {
			if err := s.Reload(ctx, collection); err != nil {
				s.logger.Error("snapshot reload failed, keeping previous snapshot", zap.String("collection", string(collection)), zap.Error(err))
			}
		}
	}
}

// coalesce drains notifications already queued so a burst (setup publishes four pools)
// triggers one reload per distinct target.
func coalesce(first models.Change, pending <-chan models.Change) []models.Collection {
	seen := map[models.Collection]struct{}{}
	var ordered []models.Collection
	add := func(collection models.Collection) {
		key := collection
		switch collection {
		case models.CollectionShifts, models.CollectionPacketCodes, models.CollectionTotalExamsOptions:
			key = models.CollectionSubjectCodes
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		ordered = append(ordered, collection)
	}

	add(first.Collection)
	for {
		select {
		case change, ok := <-pending:
			if !ok {
				return ordered
			}
			add(change.Collection)
		default:
			return ordered
		}
	}
}
