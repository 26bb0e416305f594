// Package queue provides the FIFO hand-off of job ids between the
// submission service and the worker pool. Delivery is at-least-once; the
// store's claim guard turns any redelivered id into a rejected no-op.
package queue

import "context"

// Queue is the work queue contract.
type Queue interface {
	// Enqueue appends a job id. It returns models.ErrQueueFull when the
	// queue is at maximum depth so the submitter can reject the upload
	// instead of silently dropping it.
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue blocks until a job id is available or ctx is cancelled.
	Dequeue(ctx context.Context) (string, error)
}
