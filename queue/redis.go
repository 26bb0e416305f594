package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/boqai/boq-server/models"
)

const defaultPopTimeout = 2 * time.Second

// RedisQueue is a durable FIFO queue backed by a Redis list. Submitters
// LPUSH job ids and workers BRPOP them, the same hand-off shape as the RQ
// deployment this service replaces.
type RedisQueue struct {
	client   redis.UniversalClient
	key      string
	maxDepth int64
}

// NewRedisQueue creates a queue on the given key. maxDepth <= 0 disables
// admission control.
func NewRedisQueue(client redis.UniversalClient, key string, maxDepth int64) *RedisQueue {
	return &RedisQueue{
		client:   client,
		key:      key,
		maxDepth: maxDepth,
	}
}

// Enqueue appends a job id, or fails with ErrQueueFull past maxDepth.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	if q.maxDepth > 0 {
		depth, err := q.client.LLen(ctx, q.key).Result()
		if err != nil {
			return fmt.Errorf("redis llen: %w", err)
		}
		if depth >= q.maxDepth {
			return models.ErrQueueFull
		}
	}
	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Dequeue blocks until a job id is available or ctx is cancelled. BRPOP is
// issued with a short timeout in a loop so cancellation is observed promptly.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		res, err := q.client.BRPop(ctx, defaultPopTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Timed out with nothing queued; poll again.
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("redis brpop: %w", err)
		}
		// BRPOP returns [key, value].
		if len(res) != 2 {
			return "", fmt.Errorf("redis brpop: unexpected reply of length %d", len(res))
		}
		return res[1], nil
	}
}
