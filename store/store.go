// Package store provides the shared job store consulted by workers and
// status queries. All mutation goes through Transition, which enforces the
// job state machine atomically so that at most one worker ever claims a job.
package store

import (
	"context"

	"github.com/boqai/boq-server/models"
)

// TransitionPayload carries the data attached when a job reaches a terminal
// state. Result is set for finished jobs, Error for failed ones; Worker
// identifies the claiming worker on the pending->running step.
type TransitionPayload struct {
	Result *models.BoQ
	Error  string
	Worker string
}

// Store is the job store contract shared by the submission service, the
// worker pool, and status queries.
type Store interface {
	// Create inserts a fresh pending job for the given source file and
	// returns it. The record is visible to Get before it is enqueued.
	Create(ctx context.Context, sourceFile string) (*models.Job, error)

	// Get returns a snapshot of the job, or models.ErrNotFound. Snapshots
	// reflect either the pre- or post-state of a concurrent transition,
	// never a partial one.
	Get(ctx context.Context, id string) (*models.Job, error)

	// List returns snapshots of all jobs, optionally filtered by status
	// (empty status means all).
	List(ctx context.Context, status models.JobStatus) ([]*models.Job, error)

	// Transition atomically moves the job to next, attaching the payload.
	// It returns models.ErrNotFound for unknown ids and
	// models.ErrInvalidTransition when the step violates the state machine
	// or the record is already terminal.
	Transition(ctx context.Context, id string, next models.JobStatus, payload TransitionPayload) (*models.Job, error)
}
