package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/internal/repository"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

type fakeTeacherRepo struct {
	mu        sync.Mutex
	items     map[string]models.Teacher
	seq       int
	createErr error
	deleteErr error
}

func (f *fakeTeacherRepo) List(_ context.Context) ([]models.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Teacher, 0, len(f.items))
	for _, teacher := range f.items {
		out = append(out, teacher)
	}
	return out, nil
}

func (f *fakeTeacherRepo) Create(_ context.Context, teacher *models.Teacher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.items == nil {
		f.items = map[string]models.Teacher{}
	}
	f.seq++
	teacher.ID = fmt.Sprintf("t%d", f.seq)
	teacher.CreatedAt = time.Now().UTC()
	teacher.UpdatedAt = teacher.CreatedAt
	f.items[teacher.ID] = *teacher
	return nil
}

func (f *fakeTeacherRepo) Update(_ context.Context, teacher *models.Teacher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[teacher.ID]; !ok {
		return repository.ErrNotFound
	}
	f.items[teacher.ID] = *teacher
	return nil
}

func (f *fakeTeacherRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	items       map[string]models.Assignment
	seq         int
	createErr   error
	completeErr map[string]error
	completes   int
}

func (f *fakeAssignmentRepo) List(_ context.Context) ([]models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Assignment, 0, len(f.items))
	for _, assignment := range f.items {
		out = append(out, assignment)
	}
	return out, nil
}

func (f *fakeAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.items == nil {
		f.items = map[string]models.Assignment{}
	}
	f.seq++
	assignment.ID = fmt.Sprintf("a%d", f.seq)
	f.items[assignment.ID] = *assignment
	return nil
}

func (f *fakeAssignmentRepo) Update(_ context.Context, assignment *models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[assignment.ID]; !ok {
		return repository.ErrNotFound
	}
	f.items[assignment.ID] = *assignment
	return nil
}

func (f *fakeAssignmentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeAssignmentRepo) MarkCompleted(_ context.Context, id string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	if err := f.completeErr[id]; err != nil {
		return nil, err
	}
	assignment, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if assignment.Status == models.StatusCompleted {
		return nil, repository.ErrAlreadyCompleted
	}
	assignment.Status = models.StatusCompleted
	f.items[id] = assignment
	return &assignment, nil
}

type fakePoolRepo struct {
	mu       sync.Mutex
	pools    models.CodePools
	replaced int
	err      error
}

func (f *fakePoolRepo) Get(_ context.Context) (models.CodePools, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pools, f.err
}

func (f *fakePoolRepo) Replace(_ context.Context, pools models.CodePools) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replaced++
	f.pools = pools
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Collection
}

func (p *recordingPublisher) Publish(_ context.Context, collection models.Collection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, collection)
	return nil
}

func (p *recordingPublisher) collections() []models.Collection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Collection{}, p.published...)
}

type stubCacheRepo struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, pattern)
	s.store = nil
	return nil
}

func seededStore(teachers []models.Teacher, assignments []models.Assignment) *SnapshotStore {
	store := NewSnapshotStore(nil)
	store.ReplaceTeachers(teachers)
	store.ReplaceAssignments(assignments)
	return store
}
