package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"firestore-copier/internal/copier/domain/model"
	"firestore-copier/internal/shared/eventbus"
	"firestore-copier/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const streamPrefix = "copier:events:"

// RedisEventStore appends copy lifecycle events to a Redis Stream per
// destination collection.
type RedisEventStore struct {
	client    *redis.Client
	logger    logger.Logger
	maxLength int64
}

// NewRedisEventStore creates a new Redis-based event store. maxLength caps each
// stream approximately; zero disables trimming.
func NewRedisEventStore(client *redis.Client, maxLength int64, log logger.Logger) *RedisEventStore {
	return &RedisEventStore{
		client:    client,
		logger:    log.WithComponent("redis_event_store"),
		maxLength: maxLength,
	}
}

// StreamName returns the stream holding events for destination.
func StreamName(destination string) string {
	return streamPrefix + destination
}

// Handle is an eventbus.Handler storing copy events.
func (r *RedisEventStore) Handle(ctx context.Context, event eventbus.Event) error {
	payload, ok := event.Data().(model.CopyEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for event %s", event.Data(), event.Type())
	}
	return r.StoreEvent(ctx, event.Type(), event.Source(), payload)
}

// StoreEvent appends one event to the destination's stream.
func (r *RedisEventStore) StoreEvent(ctx context.Context, eventType, source string, event model.CopyEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: StreamName(event.Destination),
		Values: map[string]interface{}{
			"type":   eventType,
			"source": source,
			"runId":  event.RunID,
			"data":   data,
		},
	}
	if r.maxLength > 0 {
		args.MaxLen = r.maxLength
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"stream":    args.Stream,
			"eventType": eventType,
		}).Error("Failed to store event in Redis")
		return err
	}

	r.logger.WithFields(map[string]interface{}{
		"stream":    args.Stream,
		"eventType": eventType,
		"id":        id,
	}).Debug("Event stored successfully in Redis")
	return nil
}
