// Package webhooks routes provider webhook events to per-event-type
// handlers and keeps retry bookkeeping in Redis. Failed events go onto a
// redelivery queue drained by a background worker; attempts are counted per
// event id and exhausted events land in a dead-letter set.
package webhooks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix = "webhooks:attempts:"
	deadLetterKey    = "webhooks:dead"
	redeliveryKey    = "webhooks:queue"
)

// RetryStore tracks delivery attempts per event id.
type RetryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRetryStore creates a retry store. Attempt counters expire after ttl so
// abandoned events do not accumulate.
func NewRetryStore(client *redis.Client, ttl time.Duration) *RetryStore {
	return &RetryStore{client: client, ttl: ttl}
}

// Increment bumps and returns the attempt count for an event.
func (s *RetryStore) Increment(ctx context.Context, eventID string) (int64, error) {
	key := attemptKeyPrefix + eventID
	attempts, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if attempts == 1 && s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return attempts, err
		}
	}
	return attempts, nil
}

// Attempts returns the current attempt count for an event.
func (s *RetryStore) Attempts(ctx context.Context, eventID string) (int64, error) {
	attempts, err := s.client.Get(ctx, attemptKeyPrefix+eventID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return attempts, err
}

// Clear drops the attempt counter after a successful delivery.
func (s *RetryStore) Clear(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, attemptKeyPrefix+eventID).Err()
}

// MarkDead moves an exhausted event into the dead-letter set.
func (s *RetryStore) MarkDead(ctx context.Context, eventID string) error {
	return s.client.SAdd(ctx, deadLetterKey, eventID).Err()
}

// DeadLetters returns the ids of events that ran out of attempts.
func (s *RetryStore) DeadLetters(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, deadLetterKey).Result()
}

// Enqueue appends a raw event payload to the redelivery queue.
func (s *RetryStore) Enqueue(ctx context.Context, payload []byte) error {
	return s.client.RPush(ctx, redeliveryKey, payload).Err()
}

// Dequeue pops the oldest queued payload, or nil when the queue is empty.
func (s *RetryStore) Dequeue(ctx context.Context) ([]byte, error) {
	payload, err := s.client.LPop(ctx, redeliveryKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return payload, err
}

// QueueDepth returns the number of payloads awaiting redelivery.
func (s *RetryStore) QueueDepth(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, redeliveryKey).Result()
}
