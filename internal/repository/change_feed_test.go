package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

func receive(t *testing.T, ch <-chan models.Change) models.Change {
	t.Helper()
	select {
	case change, ok := <-ch:
		require.True(t, ok, "channel closed")
		return change
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return models.Change{}
}

func TestMemoryChangeFeedFiltersCollections(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := NewMemoryChangeFeed(nil)
	ctx, cancel := context.WithCancel(context.Background())

	all, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	teachersOnly, err := feed.Subscribe(ctx, models.CollectionTeachers)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, models.CollectionAssignments))
	require.NoError(t, feed.Publish(ctx, models.CollectionTeachers))

	assert.Equal(t, models.CollectionAssignments, receive(t, all).Collection)
	assert.Equal(t, models.CollectionTeachers, receive(t, all).Collection)
	assert.Equal(t, models.CollectionTeachers, receive(t, teachersOnly).Collection)

	cancel()
	for range all {
	}
	for range teachersOnly {
	}
}

func TestMemoryChangeFeedDropsWhenSubscriberLags(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := NewMemoryChangeFeed(nil)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, feed.Publish(ctx, models.CollectionShifts))
	}
	assert.Len(t, ch, subscriberBuffer)

	cancel()
	for range ch {
	}
}

func TestNewChangeFeedFallsBackToMemory(t *testing.T) {
	_, ok := NewChangeFeed(nil, nil, 0, nil).(*MemoryChangeFeed)
	assert.True(t, ok)
}

func TestDecodeChangeUsesChannelName(t *testing.T) {
	change, err := decodeChange(&redis.Message{Channel: ChangeChannelPrefix + "packetCodes", Payload: `{"at":"2024-06-01T00:00:00Z"}`})
	require.NoError(t, err)
	assert.Equal(t, models.CollectionPacketCodes, change.Collection)

	_, err = decodeChange(&redis.Message{Channel: ChangeChannelPrefix + "shifts", Payload: "not json"})
	assert.Error(t, err)
}
