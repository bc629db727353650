package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

// DefaultPollInterval is used when a DBChangeFeed is built without an interval.
const DefaultPollInterval = 500 * time.Millisecond

const bumpChangeQuery = `INSERT INTO changes (collection, version) VALUES (?, 1)
	ON CONFLICT (collection) DO UPDATE SET version = changes.version + 1`

// DBChangeFeed keeps a version counter per collection in the changes table. Every
// process sharing the store polls the counters, so a write made by one process
// reaches the snapshots of all the others without Redis.
type DBChangeFeed struct {
	db       *sqlx.DB
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type changeVersion struct {
	Collection string `db:"collection"`
	Version    int64  `db:"version"`
}

// NewDBChangeFeed constructs a polling change feed over db.
func NewDBChangeFeed(db *sqlx.DB, interval time.Duration, logger *zap.Logger) *DBChangeFeed {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBChangeFeed{db: db, interval: interval, logger: logger, now: time.Now}
}

// Publish bumps the collection's version.
func (f *DBChangeFeed) Publish(ctx context.Context, collection models.Collection) error {
	if _, err := f.db.ExecContext(ctx, f.db.Rebind(bumpChangeQuery), string(collection)); err != nil {
		return fmt.Errorf("record change for %s: %w", collection, err)
	}
	return nil
}

// Subscribe records the current versions and then reports every collection whose
// version moves, once per poll, until ctx is cancelled. The returned channel is closed on exit.
func (f *DBChangeFeed) Subscribe(ctx context.Context, collections ...models.Collection) (<-chan models.Change, error) {
	if len(collections) == 0 {
		collections = models.AllCollections
	}
	seen, err := f.versions(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan models.Change, subscriberBuffer)
	go func() {
		defer close(out)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := f.versions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				f.logger.Warn("poll change versions", zap.Error(err))
				continue
			}
			for _, collection := range collections {
				if current[collection] == seen[collection] {
					continue
				}
				seen[collection] = current[collection]
				select {
				case out <- models.Change{Collection: collection, At: f.now().UTC()}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *DBChangeFeed) versions(ctx context.Context) (map[models.Collection]int64, error) {
	var rows []changeVersion
	if err := f.db.SelectContext(ctx, &rows, "SELECT collection, version FROM changes"); err != nil {
		return nil, fmt.Errorf("read change versions: %w", err)
	}
	versions := make(map[models.Collection]int64, len(rows))
	for _, row := range rows {
		versions[models.Collection(row.Collection)] = row.Version
	}
	return versions, nil
}
