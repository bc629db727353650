package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

// ChangeChannelPrefix namespaces change notification channels in Redis.
const ChangeChannelPrefix = "examassign:changes:"

const subscriberBuffer = 64

// ChangeFeed announces that a collection was written so every replica can reload it.
type ChangeFeed interface {
	Publish(ctx context.Context, collection models.Collection) error
	Subscribe(ctx context.Context, collections ...models.Collection) (<-chan models.Change, error)
}

// NewChangeFeed prefers Redis pub/sub, then the shared database's change table, and
// falls back to an in-process feed when neither is available.
func NewChangeFeed(client *redis.Client, db *sqlx.DB, pollInterval time.Duration, logger *zap.Logger) ChangeFeed {
	switch {
	case client != nil:
		return NewRedisChangeFeed(client, logger)
	case db != nil:
		return NewDBChangeFeed(db, pollInterval, logger)
	default:
		return NewMemoryChangeFeed(logger)
	}
}

// RedisChangeFeed distributes change notifications through Redis pub/sub.
type RedisChangeFeed struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisChangeFeed constructs a Redis change feed.
func NewRedisChangeFeed(client *redis.Client, logger *zap.Logger) *RedisChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisChangeFeed{client: client, logger: logger, now: time.Now}
}

// Publish broadcasts a change notification for the collection.
func (f *RedisChangeFeed) Publish(ctx context.Context, collection models.Collection) error {
	payload, err := json.Marshal(models.Change{Collection: collection, At: f.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal change for %s: %w", collection, err)
	}
	if err := f.client.Publish(ctx, ChangeChannelPrefix+string(collection), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", collection, err)
	}
	return nil
}

// Subscribe listens for changes on the given collections (all when none are given)
// until ctx is cancelled. The returned channel is closed on exit.
func (f *RedisChangeFeed) Subscribe(ctx context.Context, collections ...models.Collection) (<-chan models.Change, error) {
	if len(collections) == 0 {
		collections = models.AllCollections
	}
	channels := make([]string, len(collections))
	for i, collection := range collections {
		channels[i] = ChangeChannelPrefix + string(collection)
	}

	pubsub := f.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan models.Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				change, err := decodeChange(msg)
				if err != nil {
					f.logger.Warn("discarding malformed change notification", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeChange(msg *redis.Message) (models.Change, error) {
	var change models.Change
	if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
		return models.Change{}, err
	}
	if change.Collection == "" {
		change.Collection = models.Collection(strings.TrimPrefix(msg.Channel, ChangeChannelPrefix))
	}
	return change, nil
}

// MemoryChangeFeed fans notifications out to subscribers of a single process.
type MemoryChangeFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*memorySubscriber
	logger *zap.Logger
	now    func() time.Time
}

type memorySubscriber struct {
	ch     chan models.Change
	filter map[models.Collection]struct{}
}

// NewMemoryChangeFeed constructs an in-process change feed.
func NewMemoryChangeFeed(logger *zap.Logger) *MemoryChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryChangeFeed{subs: make(map[int]*memorySubscriber), logger: logger, now: time.Now}
}

// Publish delivers the change to every interested subscriber without blocking.
// A subscriber whose buffer is full misses the notification.
func (f *MemoryChangeFeed) Publish(_ context.Context, collection models.Collection) error {
	change := models.Change{Collection: collection, At: f.now().UTC()}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for id, sub := range f.subs {
		if _, ok := sub.filter[collection]; !ok && len(sub.filter) > 0 {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			f.logger.Warn("change subscriber lagging, notification dropped", zap.Int("subscriber", id), zap.String("collection", string(collection)))
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled.
func (f *MemoryChangeFeed) Subscribe(ctx context.Context, collections ...models.Collection) (<-chan models.Change, error) {
	sub := &memorySubscriber{
		ch:     make(chan models.Change, subscriberBuffer),
		filter: make(map[models.Collection]struct{}, len(collections)),
	}
	for _, collection := range collections {
		sub.filter[collection] = struct{}{}
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch, nil
}
