package queue

import (
	"context"

	"github.com/boqai/boq-server/models"
)

// MemoryQueue is an in-process bounded FIFO queue backed by a channel.
// Suitable for single-binary deployments and tests; durability comes from
// the Redis queue in production.
type MemoryQueue struct {
	items chan string
}

// NewMemoryQueue creates a queue holding at most maxDepth pending ids.
func NewMemoryQueue(maxDepth int) *MemoryQueue {
	return &MemoryQueue{
		items: make(chan string, maxDepth),
	}
}

// Enqueue appends a job id, or fails with ErrQueueFull at maximum depth.
func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.items <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return models.ErrQueueFull
	}
}

// Dequeue blocks until an id is available or ctx is cancelled.
func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case jobID := <-q.items:
		return jobID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
