package service

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

// Snapshot is an immutable view of every collection. A published snapshot is never mutated;
// writers build a copy and swap it in.
type Snapshot struct {
	Teachers    []models.Teacher
	Assignments []models.Assignment
	Pools       models.CodePools
	Version     uint64
}

// TeacherByID resolves a teacher from the directory.
func (s *Snapshot) TeacherByID(id string) (models.Teacher, bool) {
	for _, teacher := range s.Teachers {
		if teacher.ID == id {
			return teacher, true
		}
	}
	return models.Teacher{}, false
}

// TeacherByEmail resolves a teacher by case-insensitive email.
func (s *Snapshot) TeacherByEmail(email string) (models.Teacher, bool) {
	for _, teacher := range s.Teachers {
		if strings.EqualFold(teacher.Email, email) {
			return teacher, true
		}
	}
	return models.Teacher{}, false
}

// AssignmentByID resolves an assignment from the ledger.
func (s *Snapshot) AssignmentByID(id string) (models.Assignment, bool) {
	for _, assignment := range s.Assignments {
		if assignment.ID == id {
			return assignment, true
		}
	}
	return models.Assignment{}, false
}

// AssignmentsByTeacher returns a teacher's assignments in source order.
func (s *Snapshot) AssignmentsByTeacher(teacherID string) []models.Assignment {
	owned := []models.Assignment{}
	for _, assignment := range s.Assignments {
		if assignment.TeacherID == teacherID {
			owned = append(owned, assignment)
		}
	}
	return owned
}

// PendingAssignments returns every assignment not yet completed.
func (s *Snapshot) PendingAssignments() []models.Assignment {
	pending := []models.Assignment{}
	for _, assignment := range s.Assignments {
		if assignment.IsPending() {
			pending = append(pending, assignment)
		}
	}
	return pending
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Teachers:    append([]models.Teacher{}, s.Teachers...),
		Assignments: append([]models.Assignment{}, s.Assignments...),
		Pools: models.CodePools{
			SubjectCodes:      append([]string{}, s.Pools.SubjectCodes...),
			Shifts:            append([]string{}, s.Pools.Shifts...),
			PacketCodes:       append([]string{}, s.Pools.PacketCodes...),
			TotalExamsOptions: append([]int{}, s.Pools.TotalExamsOptions...),
		},
		Version: s.Version,
	}
	return next
}

func (s *Snapshot) upsertTeacher(teacher models.Teacher) {
	for i := range s.Teachers {
		if s.Teachers[i].ID == teacher.ID {
			s.Teachers[i] = teacher
			return
		}
	}
	s.Teachers = append(s.Teachers, teacher)
}

func (s *Snapshot) removeTeacher(id string) {
	kept := s.Teachers[:0]
	for _, teacher := range s.Teachers {
		if teacher.ID != id {
			kept = append(kept, teacher)
		}
	}
	s.Teachers = kept
}

func (s *Snapshot) upsertAssignment(assignment models.Assignment) {
	for i := range s.Assignments {
		if s.Assignments[i].ID == assignment.ID {
			s.Assignments[i] = assignment
			return
		}
	}
	s.Assignments = append(s.Assignments, assignment)
}

func (s *Snapshot) removeAssignment(id string) {
	kept := s.Assignments[:0]
	for _, assignment := range s.Assignments {
		if assignment.ID != id {
			kept = append(kept, assignment)
		}
	}
	s.Assignments = kept
}

// SnapshotStore holds the current snapshot behind an atomic pointer. Readers never block;
// writers are serialised so copy-and-swap never loses an update.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
	metrics *MetricsService
}

// NewSnapshotStore starts from an empty snapshot.
func NewSnapshotStore(metrics *MetricsService) *SnapshotStore {
	store := &SnapshotStore{metrics: metrics}
	store.current.Store(&Snapshot{
		Teachers:    []models.Teacher{},
		Assignments: []models.Assignment{},
		Pools: models.CodePools{
			SubjectCodes:      []string{},
			Shifts:            []string{},
			PacketCodes:       []string{},
			TotalExamsOptions: []int{},
		},
	})
	return store
}

// Current returns the snapshot being served. Callers must treat it as read-only.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// Update applies fn to a private copy of the current snapshot and publishes the copy.
func (s *SnapshotStore) Update(fn func(next *Snapshot)) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	fn(next)
	next.Version++
	s.current.Store(next)
	s.metrics.SetSnapshotVersion(next.Version)
	return next
}

// ReplaceTeachers installs an authoritative teacher collection.
func (s *SnapshotStore) ReplaceTeachers(teachers []models.Teacher) *Snapshot {
	return s.Update(func(next *Snapshot) { next.Teachers = append([]models.Teacher{}, teachers...) })
}

// ReplaceAssignments installs an authoritative assignment collection.
func (s *SnapshotStore) ReplaceAssignments(assignments []models.Assignment) *Snapshot {
	return s.Update(func(next *Snapshot) { next.Assignments = append([]models.Assignment{}, assignments...) })
}

// ReplacePools installs authoritative code pools.
func (s *SnapshotStore) ReplacePools(pools models.CodePools) *Snapshot {
	return s.Update(func(next *Snapshot) { next.Pools = pools })
}
