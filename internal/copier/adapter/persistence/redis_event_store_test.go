package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/shared/eventbus"
	"firestore-copier/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestRedisClient creates a Redis client for integration testing
func createTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:6379",
		DB:           14,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "copier:events:qpost-operations", StreamName("qpost-operations"))
}

func TestHandle_RejectsUnknownPayload(t *testing.T) {
	client := createTestRedisClient()
	defer client.Close()
	store := NewRedisEventStore(client, 0, logger.Nop())

	event := eventbus.NewBasicEventWithSource(eventbus.EventTypeCopyStarted, "not a copy event", "test")
	err := store.Handle(context.Background(), event)
	assert.ErrorContains(t, err, "unexpected payload")
}

func TestRedisEventStore_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := createTestRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available for integration testing:", err)
	}

	destination := fmt.Sprintf("it-%d", time.Now().UnixNano())
	defer func() {
		client.Del(context.Background(), StreamName(destination))
		client.Close()
	}()

	store := NewRedisEventStore(client, 100, logger.Nop())

	started := model.CopyEvent{RunID: "r1", Source: "src", Destination: destination, Total: 3}
	completed := model.CopyEvent{RunID: "r1", Source: "src", Destination: destination, Copied: 3}
	require.NoError(t, store.Handle(ctx, eventbus.NewBasicEventWithSource(eventbus.EventTypeCopyStarted, started, "copier")))
	require.NoError(t, store.Handle(ctx, eventbus.NewBasicEventWithSource(eventbus.EventTypeCopyCompleted, completed, "copier")))

	msgs, err := client.XRangeN(ctx, StreamName(destination), "-", "+", 10).Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, eventbus.EventTypeCopyStarted, msgs[0].Values["type"])
	assert.Equal(t, "copier", msgs[0].Values["source"])
	assert.Equal(t, "r1", msgs[0].Values["runId"])
	assert.Equal(t, started, decodeStoredEvent(t, msgs[0]))

	assert.Equal(t, eventbus.EventTypeCopyCompleted, msgs[1].Values["type"])
	assert.Equal(t, 3, decodeStoredEvent(t, msgs[1]).Copied)
}

func decodeStoredEvent(t *testing.T, msg redis.XMessage) model.CopyEvent {
	t.Helper()
	raw, ok := msg.Values["data"].(string)
	require.True(t, ok, "data field missing from %s", msg.ID)

	var event model.CopyEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}
