package repository

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/pkg/config"
	"github.com/noah-isme/exam-assign-api/pkg/database"
)

func openSharedSQLite(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, database.EnsureSchema(db))
	return db
}

func TestDBChangeFeedPublishBumpsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO changes (collection, version) VALUES ($1, 1)")).
		WithArgs("assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	feed := NewDBChangeFeed(sqlx.NewDb(db, "postgres"), 0, nil)
	require.NoError(t, feed.Publish(context.Background(), models.CollectionAssignments))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBChangeFeedDeliversAcrossConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "exam.db")
	writerDB := openSharedSQLite(t, path)
	defer writerDB.Close()
	readerDB := openSharedSQLite(t, path)
	defer readerDB.Close()

	writer := NewDBChangeFeed(writerDB, 10*time.Millisecond, nil)
	reader := NewDBChangeFeed(readerDB, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, writer.Publish(ctx, models.CollectionTeachers))

	changes, err := reader.Subscribe(ctx, models.CollectionAssignments, models.CollectionTeachers)
	require.NoError(t, err)

	require.NoError(t, writer.Publish(ctx, models.CollectionShifts))
	require.NoError(t, writer.Publish(ctx, models.CollectionAssignments))

	change := receive(t, changes)
	assert.Equal(t, models.CollectionAssignments, change.Collection)
	assert.False(t, change.At.IsZero())

	select {
	case extra := <-changes:
		t.Fatalf("unexpected change %v", extra)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	for range changes {
	}
}
