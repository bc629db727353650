package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

func TestSnapshotStorePublishesCopies(t *testing.T) {
	store := seededStore([]models.Teacher{{ID: "t1", Name: "Ana"}}, nil)
	before := store.Current()

	after := store.Update(func(next *Snapshot) {
		next.upsertTeacher(models.Teacher{ID: "t1", Name: "Ana Maria"})
		next.upsertTeacher(models.Teacher{ID: "t2", Name: "Budi"})
	})

	assert.Equal(t, "Ana", before.Teachers[0].Name)
	assert.Len(t, before.Teachers, 1)
	assert.Equal(t, "Ana Maria", after.Teachers[0].Name)
	assert.Len(t, after.Teachers, 2)
	assert.Equal(t, before.Version+1, after.Version)
	assert.Same(t, after, store.Current())
}

func TestSnapshotStoreRemoveLeavesPreviousIntact(t *testing.T) {
	store := seededStore(nil, []models.Assignment{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}})
	before := store.Current()

	store.Update(func(next *Snapshot) { next.removeAssignment("a2") })

	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{before.Assignments[0].ID, before.Assignments[1].ID, before.Assignments[2].ID})
	current := store.Current()
	require.Len(t, current.Assignments, 2)
	assert.Equal(t, "a3", current.Assignments[1].ID)
}

func TestSnapshotStoreConcurrentUpdates(t *testing.T) {
	store := NewSnapshotStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Update(func(next *Snapshot) {
				next.upsertAssignment(models.Assignment{ID: string(rune('A' + i))})
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Current().Assignments, 50)
	assert.Equal(t, uint64(50), store.Current().Version)
}

func TestSnapshotLookups(t *testing.T) {
	snapshot := seededStore(
		[]models.Teacher{{ID: "t1", Email: "Ana@School.id"}},
		[]models.Assignment{
			{ID: "a1", TeacherID: "t1", Status: models.StatusPending},
			{ID: "a2", TeacherID: "t2", Status: models.StatusCompleted},
		},
	).Current()

	_, ok := snapshot.TeacherByEmail("ana@school.id")
	assert.True(t, ok)
	assert.Len(t, snapshot.AssignmentsByTeacher("t1"), 1)
	assert.Len(t, snapshot.PendingAssignments(), 1)
	_, ok = snapshot.AssignmentByID("missing")
	assert.False(t, ok)
}
