package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKeyPrefix = "queue:"

// RedisQueue is a FIFO queue of job ids backed by a Redis list. Producers
// LPUSH onto the head and the consumer BRPOPs from the tail, so ids come
// out in submission order.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
}

// NewRedisQueue creates a RedisQueue for the named queue.
func NewRedisQueue(client redis.UniversalClient, name string) *RedisQueue {
	return &RedisQueue{client: client, key: queueKeyPrefix + name}
}

// Key returns the Redis list key backing this queue.
func (q *RedisQueue) Key() string {
	return q.key
}

// Enqueue appends a job id to the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id cannot be empty")
	}

	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", q.key, err)
	}
	return nil
}

// Dequeue pops the oldest id, blocking up to timeout. An empty string with
// a nil error means the queue stayed empty for the full wait.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // timed out with nothing queued
		}
		return "", fmt.Errorf("redis brpop %s: %w", q.key, err)
	}

	// BRPOP returns [key, value].
	if len(result) != 2 {
		return "", fmt.Errorf("redis brpop %s: unexpected reply length %d", q.key, len(result))
	}
	return result[1], nil
}

// Len returns the current queue depth.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", q.key, err)
	}
	return n, nil
}
